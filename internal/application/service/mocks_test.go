package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// memRequestRepo is an in-memory RequestRepository
type memRequestRepo struct {
	mu        sync.Mutex
	nextID    int64
	requests  map[int64]*entity.Request
	updateErr error
	createErr error
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: map[int64]*entity.Request{}}
}

func (m *memRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	req.ID = m.nextID
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *memRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %d", workflow.ErrNotFound, id)
	}
	return req.Clone(), nil
}

func (m *memRequestRepo) GetByNumber(ctx context.Context, number string) (*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.RequestNumber == number {
			return req.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: request %s", workflow.ErrNotFound, number)
}

func (m *memRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entity.Request
	for _, req := range m.requests {
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Holder != "" {
			holder, ok := req.CurrentHolder()
			if !ok || holder != filter.Holder {
				continue
			}
		}
		if filter.ToDelegateID != nil && (req.ToDelegateID == nil || *req.ToDelegateID != *filter.ToDelegateID) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !req.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRequestRepo) Update(ctx context.Context, req *entity.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.requests[req.ID]; !ok {
		return fmt.Errorf("%w: request %d", workflow.ErrNotFound, req.ID)
	}
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *memRequestRepo) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, req := range m.requests {
		if strings.HasPrefix(req.RequestNumber, prefix) {
			out = append(out, req.RequestNumber)
		}
	}
	return out, nil
}

func (m *memRequestRepo) put(req *entity.Request) *entity.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	req.ID = m.nextID
	m.requests[req.ID] = req.Clone()
	return req
}

type mockStaffRepo struct {
	staff []*entity.Staff
	calls int
	err   error
}

func (m *mockStaffRepo) List(ctx context.Context) ([]*entity.Staff, error) {
	return m.staff, m.err
}

func (m *mockStaffRepo) GetByID(ctx context.Context, id int64) (*entity.Staff, error) {
	for _, s := range m.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: staff %d", workflow.ErrNotFound, id)
}

func (m *mockStaffRepo) GetByRole(ctx context.Context, role workflow.Role) ([]*entity.Staff, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := []*entity.Staff{}
	for _, s := range m.staff {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStaffRepo) Upsert(ctx context.Context, staff *entity.Staff) error {
	m.staff = append(m.staff, staff)
	return nil
}

type mockDelegateRepo struct {
	delegates map[int64]*entity.Delegate
}

func (m *mockDelegateRepo) GetByID(ctx context.Context, id int64) (*entity.Delegate, error) {
	if d, ok := m.delegates[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: delegate %d", workflow.ErrNotFound, id)
}

func (m *mockDelegateRepo) List(ctx context.Context) ([]*entity.Delegate, error) {
	out := []*entity.Delegate{}
	for _, d := range m.delegates {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDelegateRepo) Upsert(ctx context.Context, delegate *entity.Delegate) error {
	m.delegates[delegate.ID] = delegate
	return nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type sentMessage struct {
	recipient port.Recipient
	text      string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, recipient port.Recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{recipient: recipient, text: text})
	return nil
}

type mockDrafter struct {
	draftFunc func(ctx context.Context, in port.DraftInput) (string, error)
}

func (m *mockDrafter) DraftDirective(ctx context.Context, in port.DraftInput) (string, error) {
	return m.draftFunc(ctx, in)
}
