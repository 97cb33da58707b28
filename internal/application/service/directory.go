package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Directory resolves staff and delegates through a small TTL cache.
// Each process keeps its own cache; entries go stale for at most the TTL.
type Directory struct {
	staffRepo    port.StaffRepository
	delegateRepo port.DelegateRepository

	holders   *expirable.LRU[workflow.Role, []*entity.Staff]
	delegates *expirable.LRU[int64, *entity.Delegate]
}

// NewDirectory creates a directory cache holding up to size entries per kind
func NewDirectory(staffRepo port.StaffRepository, delegateRepo port.DelegateRepository, size int, ttl time.Duration) *Directory {
	if size <= 0 {
		size = 256
	}
	return &Directory{
		staffRepo:    staffRepo,
		delegateRepo: delegateRepo,
		holders:      expirable.NewLRU[workflow.Role, []*entity.Staff](size, nil, ttl),
		delegates:    expirable.NewLRU[int64, *entity.Delegate](size, nil, ttl),
	}
}

// Holders returns the staff members holding a role
func (d *Directory) Holders(ctx context.Context, role workflow.Role) ([]*entity.Staff, error) {
	if staff, ok := d.holders.Get(role); ok {
		directoryCacheHitsTotal.Inc()
		return staff, nil
	}
	directoryCacheMissesTotal.Inc()

	staff, err := d.staffRepo.GetByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("look up %s staff: %w", role, err)
	}
	d.holders.Add(role, staff)
	return staff, nil
}

// Delegate returns a delegate by ID
func (d *Directory) Delegate(ctx context.Context, id int64) (*entity.Delegate, error) {
	if delegate, ok := d.delegates.Get(id); ok {
		directoryCacheHitsTotal.Inc()
		return delegate, nil
	}
	directoryCacheMissesTotal.Inc()

	delegate, err := d.delegateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("look up delegate %d: %w", id, err)
	}
	d.delegates.Add(id, delegate)
	return delegate, nil
}

// ActorName returns a display name to snapshot into the ledger.
// Lookup failures give an empty name; the renderer then falls back to the role.
func (d *Directory) ActorName(ctx context.Context, actor entity.Actor) string {
	switch actor.Kind {
	case entity.ActorKindRole:
		staff, err := d.Holders(ctx, actor.Role)
		if err != nil || len(staff) == 0 {
			return ""
		}
		return staff[0].Name
	case entity.ActorKindDelegate:
		delegate, err := d.Delegate(ctx, actor.DelegateID)
		if err != nil {
			return ""
		}
		return delegate.Name
	default:
		return ""
	}
}

// Invalidate drops every cached entry, e.g. after the staff list is reseeded
func (d *Directory) Invalidate() {
	d.holders.Purge()
	d.delegates.Purge()
}
