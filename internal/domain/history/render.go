package history

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Line is one rendered ledger entry
type Line struct {
	Action    entity.HistoryAction `json:"action"`
	Actor     string               `json:"actor"`
	Text      string               `json:"text"`
	Comment   string               `json:"comment,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Renderer turns history events into localized sentences
type Renderer struct {
	catalog *catalog.Builder
	matcher language.Matcher
}

type translations map[string]string

var templates = map[language.Tag]translations{
	language.English: {
		"action.Created":             "%[1]s created the request",
		"action.Approved":            "%[1]s approved",
		"action.Rejected":            "%[1]s rejected the request",
		"action.Commented":           "%[1]s added a comment",
		"action.ResolvedAndClosed":   "%[1]s resolved and closed the request",
		"action.Cancelled":           "%[1]s cancelled the request",
		"action.ResolvedAndDirected": "%[1]s resolved the request and directed it to %[2]s",
		"action.DirectiveViewed":     "%[1]s viewed the directive",
		"action.DirectiveReplied":    "%[1]s replied to the directive",
		"actor.Delegate":             "Delegate",
		"actor.System":               "System",
		"role.GeneralManager":        "General Manager",
		"role.MovementManager":       "Movement Manager",
		"role.OpsSupervisor":         "Operations Supervisor",
		"role.HR":                    "Human Resources",
		"role.Finance":               "Finance",
		"role.Legal":                 "Legal",
	},
	language.Arabic: {
		"action.Created":             "%[1]s أنشأ الطلب",
		"action.Approved":            "%[1]s وافق",
		"action.Rejected":            "%[1]s رفض الطلب",
		"action.Commented":           "%[1]s أضاف تعليقًا",
		"action.ResolvedAndClosed":   "%[1]s عالج الطلب وأغلقه",
		"action.Cancelled":           "%[1]s ألغى الطلب",
		"action.ResolvedAndDirected": "%[1]s عالج الطلب ووجّهه إلى %[2]s",
		"action.DirectiveViewed":     "%[1]s اطّلع على التوجيه",
		"action.DirectiveReplied":    "%[1]s ردّ على التوجيه",
		"actor.Delegate":             "المندوب",
		"actor.System":               "النظام",
		"role.GeneralManager":        "المدير العام",
		"role.MovementManager":       "مدير الحركة",
		"role.OpsSupervisor":         "مشرف العمليات",
		"role.HR":                    "الموارد البشرية",
		"role.Finance":               "المالية",
		"role.Legal":                 "الشؤون القانونية",
	},
}

// NewRenderer builds the message catalog. English is the fallback language.
func NewRenderer() (*Renderer, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	tags := []language.Tag{language.English, language.Arabic}
	for _, tag := range tags {
		for key, msg := range templates[tag] {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("register %s message %q: %w", tag, key, err)
			}
		}
	}

	return &Renderer{
		catalog: b,
		matcher: language.NewMatcher(tags),
	}, nil
}

// printer returns a printer for the best match of lang, e.g. "ar", "ar-SA" or "en"
func (r *Renderer) printer(lang string) *message.Printer {
	tag, _, _ := r.matcher.Match(language.Make(lang))
	base, _ := tag.Base()
	return message.NewPrinter(language.Make(base.String()), message.Catalog(r.catalog))
}

// RoleName returns the localized display name of a role
func (r *Renderer) RoleName(role workflow.Role, lang string) string {
	return r.printer(lang).Sprintf("role." + role.String())
}

// Describe renders one event
func (r *Renderer) Describe(evt entity.HistoryEvent, lang string) string {
	p := r.printer(lang)

	name := r.actorName(p, evt)
	key := "action." + string(evt.Action)

	if evt.Action == entity.ActionResolvedAndDirected && evt.DirectedTo != nil {
		return p.Sprintf(key, name, p.Sprintf("role."+evt.DirectedTo.String()))
	}
	return p.Sprintf(key, name)
}

// Render renders the whole ledger of a request in order
func (r *Renderer) Render(req *entity.Request, lang string) []Line {
	lines := make([]Line, 0, len(req.History))
	for _, evt := range req.History {
		lines = append(lines, Line{
			Action:    evt.Action,
			Actor:     r.actorName(r.printer(lang), evt),
			Text:      r.Describe(evt, lang),
			Comment:   evt.Comment,
			Timestamp: evt.Timestamp,
		})
	}
	return lines
}

// actorName prefers the snapshot name; it falls back to the actor's role or kind
func (r *Renderer) actorName(p *message.Printer, evt entity.HistoryEvent) string {
	if evt.ActorName != "" {
		return evt.ActorName
	}

	switch evt.Actor.Kind {
	case entity.ActorKindRole:
		return p.Sprintf("role." + evt.Actor.Role.String())
	case entity.ActorKindDelegate:
		return p.Sprintf("actor.Delegate")
	default:
		return p.Sprintf("actor.System")
	}
}
