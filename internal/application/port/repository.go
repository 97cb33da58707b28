package port

import (
	"context"
	"time"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// RequestFilter narrows a request listing. Zero values match everything.
type RequestFilter struct {
	Type          workflow.RequestType
	Status        workflow.State
	Holder        workflow.Role // current stage role of pending staged requests
	ToDelegateID  *int64
	CreatedBefore time.Time
	Limit         int
	Offset        int
}

// RequestRepository persists requests together with their history ledger
type RequestRepository interface {
	// Create stores a new request and its history; it sets req.ID
	Create(ctx context.Context, req *entity.Request) error

	// GetByID loads a request with its full history in order
	GetByID(ctx context.Context, id int64) (*entity.Request, error)

	// GetByNumber loads a request by its human-readable number
	GetByNumber(ctx context.Context, number string) (*entity.Request, error)

	// List returns requests matching the filter, newest first
	List(ctx context.Context, filter RequestFilter) ([]*entity.Request, error)

	// Update stores the mutable fields and appends history events not yet stored.
	// Stored history rows are never rewritten.
	Update(ctx context.Context, req *entity.Request) error

	// NumbersByPrefix returns every request number starting with prefix
	NumbersByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// StaffRepository reads the staff directory
type StaffRepository interface {
	List(ctx context.Context) ([]*entity.Staff, error)
	GetByID(ctx context.Context, id int64) (*entity.Staff, error)
	GetByRole(ctx context.Context, role workflow.Role) ([]*entity.Staff, error)
	Upsert(ctx context.Context, staff *entity.Staff) error
}

// DelegateRepository reads the delegate directory
type DelegateRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Delegate, error)
	List(ctx context.Context) ([]*entity.Delegate, error)
	Upsert(ctx context.Context, delegate *entity.Delegate) error
}

// TransactionManager runs fn in a transaction carried by the context.
// Repositories called with that context join the transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
