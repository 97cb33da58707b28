package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/application/service"
	"github.com/garyjia/delegate-desk/internal/container"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func listCmd(opts *options) *cobra.Command {
	var (
		reqType, status, holder string
		delegateID              int64
		limit                   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := port.RequestFilter{
				Type:   workflow.RequestType(reqType),
				Status: workflow.State(status),
				Holder: workflow.Role(holder),
				Limit:  limit,
			}
			if delegateID > 0 {
				filter.ToDelegateID = &delegateID
			}

			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				requests, err := c.Services().Requests.List(ctx, filter)
				if err != nil {
					return fmt.Errorf("failed to list requests: %w", err)
				}
				PrintRequests(cmd.OutOrStdout(), requests)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reqType, "type", "", "Filter by type (Internal|Employee|DirectDirective)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING_APPROVAL|APPROVED|REJECTED|COMPLETED)")
	cmd.Flags().StringVar(&holder, "holder", "", "Filter by the role holding the request")
	cmd.Flags().Int64Var(&delegateID, "delegate", 0, "Filter directives by target delegate")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of requests")
	return cmd
}

func showCmd(opts *options) *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "show [id|number]",
		Short: "Show a request with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				req, err := findRequest(ctx, c, args[0])
				if err != nil {
					return err
				}
				lines, err := c.Services().Requests.History(ctx, req.ID, lang)
				if err != nil {
					return err
				}
				PrintRequest(cmd.OutOrStdout(), req, lines)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "en", "History language (en|ar)")
	return cmd
}

func progressCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [id|number]",
		Short: "Show how far a request got through its workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				req, err := findRequest(ctx, c, args[0])
				if err != nil {
					return err
				}
				progress, err := c.Services().Requests.Progress(ctx, req.ID)
				if err != nil {
					return err
				}
				PrintProgress(cmd.OutOrStdout(), req, progress)
				return nil
			})
		},
	}
}

func actCmd(opts *options) *cobra.Command {
	var (
		action, role, comment, target, image string
		delegateID                           int64
	)

	cmd := &cobra.Command{
		Use:   "act [id|number]",
		Short: "Apply an action to a request",
		Long: `Apply an action as a staff role (--role) or a delegate (--delegate).
Actions: APPROVE, REJECT, RESOLVE_AND_CLOSE, RESOLVE_AND_DIRECT, COMMENT,
VIEW_DIRECTIVE, REPLY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := actorFromFlags(role, delegateID)
			if err != nil {
				return err
			}

			input := service.ActionInput{
				Trigger: workflow.Trigger(strings.ToUpper(action)),
				Actor:   actor,
				Payload: lifecycle.Payload{
					Comment:    comment,
					TargetRole: workflow.Role(target),
					ImageURL:   image,
				},
			}

			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				req, err := findRequest(ctx, c, args[0])
				if err != nil {
					return err
				}
				result, err := c.Services().Requests.Act(ctx, req.ID, input)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s %s\n", color.New(color.FgGreen).Sprint("OK"), result.Request.RequestNumber, statusLabel(result.Request.Status))
				if result.FollowUp != nil {
					fmt.Fprintf(out, "   follow-up %s to %s\n", result.FollowUp.RequestNumber, result.FollowUp.Workflow[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Action to apply")
	cmd.Flags().StringVar(&role, "role", "", "Act as this staff role")
	cmd.Flags().Int64Var(&delegateID, "delegate", 0, "Act as this delegate")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment, reason or reply text")
	cmd.Flags().StringVar(&target, "target", "", "Target department for RESOLVE_AND_DIRECT")
	cmd.Flags().StringVar(&image, "image", "", "Image URL for REPLY")
	_ = cmd.MarkFlagRequired("action")
	cmd.MarkFlagsMutuallyExclusive("role", "delegate")
	cmd.MarkFlagsOneRequired("role", "delegate")
	return cmd
}

func expiredCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "expired",
		Short: "List pending directives past their reply window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				requests, err := c.Services().Requests.ExpiredDirectives(ctx)
				if err != nil {
					return err
				}
				PrintRequests(cmd.OutOrStdout(), requests)
				return nil
			})
		},
	}
}

func actorFromFlags(role string, delegateID int64) (entity.Actor, error) {
	var actor entity.Actor
	if role != "" {
		actor = entity.RoleActor(workflow.Role(role))
	} else {
		actor = entity.DelegateActor(delegateID)
	}
	if err := actor.Validate(); err != nil {
		return entity.Actor{}, err
	}
	return actor, nil
}

// PrintRequests writes a request table
func PrintRequests(w io.Writer, requests []*entity.Request) {
	if len(requests) == 0 {
		fmt.Fprintln(w, "No requests found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tTYPE\tTITLE\tSTATUS\tHOLDER\tCREATED")
	fmt.Fprintln(tw, "------\t----\t-----\t------\t------\t-------")
	for _, req := range requests {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			req.RequestNumber,
			req.Type,
			req.Title,
			statusLabel(req.Status),
			holderLabel(req),
			req.CreatedAt.Format(time.DateTime),
		)
	}
	_ = tw.Flush()
}

// PrintRequest writes the details and rendered history of one request
func PrintRequest(w io.Writer, req *entity.Request, lines []history.Line) {
	fmt.Fprintf(w, "Request: %s (id %d)\n", req.RequestNumber, req.ID)
	fmt.Fprintf(w, "Type: %s\n", req.Type)
	if req.Topic != "" {
		fmt.Fprintf(w, "Topic: %s\n", req.Topic)
	}
	fmt.Fprintf(w, "Title: %s\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", req.Description)
	}
	fmt.Fprintf(w, "Status: %s\n", statusLabel(req.Status))
	fmt.Fprintf(w, "Holder: %s\n", holderLabel(req))
	if expires, ok := lifecycle.ExpiresAt(req); ok {
		fmt.Fprintf(w, "Reply by: %s\n", expires.Format(time.DateTime))
	}
	if req.DirectiveResponse != nil {
		fmt.Fprintf(w, "Reply: %s\n", req.DirectiveResponse.Comment)
	}
	fmt.Fprintf(w, "Created: %s\n", req.CreatedAt.Format(time.DateTime))

	fmt.Fprintln(w, "\nHistory:")
	for _, line := range lines {
		fmt.Fprintf(w, "  %s  %s\n", line.Timestamp.Format(time.DateTime), line.Text)
		if line.Comment != "" {
			fmt.Fprintf(w, "      %q\n", line.Comment)
		}
	}
}

// PrintProgress writes one line per workflow stage
func PrintProgress(w io.Writer, req *entity.Request, progress *lifecycle.Progress) {
	fmt.Fprintf(w, "%s %s\n", req.RequestNumber, statusLabel(req.Status))
	if len(progress.Stages) == 0 {
		fmt.Fprintln(w, "  (no workflow stages)")
	}
	for i, stage := range progress.Stages {
		fmt.Fprintf(w, "  %d. %s %s\n", i+1, stageIcon(stage.Status), stage.Role)
	}
	if progress.ClosingActor != "" {
		fmt.Fprintf(w, "Closed by %s", progress.ClosingActor)
		if progress.ClosingComment != "" {
			fmt.Fprintf(w, ": %q", progress.ClosingComment)
		}
		fmt.Fprintln(w)
	}
}

func stageIcon(status lifecycle.StageStatus) string {
	switch status {
	case lifecycle.StagePassed:
		return color.New(color.FgGreen).Sprint("✓")
	case lifecycle.StageCurrent:
		return color.New(color.FgYellow).Sprint("●")
	case lifecycle.StageFailed:
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgWhite).Sprint("○")
	}
}

func statusLabel(status workflow.State) string {
	switch status {
	case workflow.StateApproved, workflow.StateCompleted:
		return color.New(color.FgGreen).Sprint(status)
	case workflow.StateRejected, workflow.StateCancelled:
		return color.New(color.FgRed).Sprint(status)
	default:
		return color.New(color.FgYellow).Sprint(status)
	}
}

func holderLabel(req *entity.Request) string {
	if req.IsDirective() && req.ToDelegateID != nil && !req.Status.IsTerminal() {
		return fmt.Sprintf("delegate %d", *req.ToDelegateID)
	}
	if holder, ok := req.CurrentHolder(); ok {
		return holder.String()
	}
	return "-"
}
