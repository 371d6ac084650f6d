package association

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/catalog"
	"xdial-backend/internal/scope"
	"xdial-backend/internal/status"
)

// MemoryRepo is an in-memory repository for tests. It mirrors the
// transactional close-then-open history semantics of PgRepo so lifecycle
// scenarios can run without a database.
type MemoryRepo struct {
	mu           sync.Mutex
	associations map[int64]Association
	bots         map[int64][]ServerCampaignBots
	statusIDs    map[string]int64
	history      map[int64][]status.History
	nextID       int64
	nextHistID   int64
}

func NewMemoryRepo() *MemoryRepo {
	r := &MemoryRepo{
		associations: map[int64]Association{},
		bots:         map[int64][]ServerCampaignBots{},
		statusIDs:    map[string]int64{},
		history:      map[int64][]status.History{},
	}
	for i, name := range catalog.DefaultStatuses() {
		r.statusIDs[name] = int64(i + 1)
	}
	return r
}

func (r *MemoryRepo) Get(ctx context.Context, sc scope.Scope, id int64) (Association, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.associations[id]
	if !ok || !sc.AllowsClient(a.ClientID) {
		return Association{}, fmt.Errorf("association %d: %w", id, apperr.ErrNotFound)
	}
	return a, nil
}

func (r *MemoryRepo) List(ctx context.Context, sc scope.Scope) ([]Association, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Association
	for id := int64(1); id <= r.nextID; id++ {
		a, ok := r.associations[id]
		if ok && sc.AllowsClient(a.ClientID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListBots(ctx context.Context, sc scope.Scope, associationID int64) ([]ServerCampaignBots, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.associations[associationID]
	if !ok || !sc.AllowsClient(a.ClientID) {
		return nil, nil
	}
	return append([]ServerCampaignBots(nil), r.bots[associationID]...), nil
}

// AddBots seeds a bot allocation; test helper.
func (r *MemoryRepo) AddBots(b ServerCampaignBots) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = int64(len(r.bots[b.AssociationID]) + 1)
	r.bots[b.AssociationID] = append(r.bots[b.AssociationID], b)
}

func (r *MemoryRepo) Create(ctx context.Context, a Association, statusName string, now time.Time) (Association, status.History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	statusID, ok := r.statusIDs[statusName]
	if !ok {
		return Association{}, status.History{}, fmt.Errorf("status %q: %w", statusName, apperr.ErrNotFound)
	}
	r.nextID++
	a.ID = r.nextID
	r.associations[a.ID] = a

	h := r.transition(a.ID, statusID, statusName, now)
	return a, h, nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Association, statusName string, now time.Time) (Association, *status.History, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.associations[a.ID]; !ok {
		return Association{}, nil, fmt.Errorf("association %d: %w", a.ID, apperr.ErrNotFound)
	}
	if statusName != "" {
		if _, ok := r.statusIDs[statusName]; !ok {
			return Association{}, nil, fmt.Errorf("status %q: %w", statusName, apperr.ErrNotFound)
		}
	}
	r.associations[a.ID] = a

	if statusName == "" {
		return a, nil, nil
	}
	h := r.transition(a.ID, r.statusIDs[statusName], statusName, now)
	return a, &h, nil
}

func (r *MemoryRepo) SetApproved(ctx context.Context, id int64, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.associations[id]
	if !ok {
		return fmt.Errorf("association %d: %w", id, apperr.ErrNotFound)
	}
	a.IsApproved = approved
	r.associations[id] = a
	return nil
}

// transition applies the close-then-open contract under r.mu.
func (r *MemoryRepo) transition(associationID, statusID int64, statusName string, now time.Time) status.History {
	hs := r.history[associationID]
	for i := range hs {
		if hs[i].EndDate == nil {
			if hs[i].StatusID == statusID {
				return hs[i]
			}
			end := now
			hs[i].EndDate = &end
		}
	}
	r.nextHistID++
	h := status.History{
		ID:            r.nextHistID,
		AssociationID: associationID,
		StatusID:      statusID,
		StatusName:    statusName,
		StartDate:     now,
	}
	r.history[associationID] = append(hs, h)
	return h
}

// HistoryOf returns a copy of the association's full status history, oldest
// first; test helper.
func (r *MemoryRepo) HistoryOf(id int64) []status.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]status.History(nil), r.history[id]...)
}

// CurrentStatus returns the open history row, or nil; test helper.
func (r *MemoryRepo) CurrentStatus(id int64) *status.History {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.history[id] {
		if h.EndDate == nil {
			out := h
			return &out
		}
	}
	return nil
}
