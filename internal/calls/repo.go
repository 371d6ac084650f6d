package calls

import (
	"context"
	"fmt"
	"sync"

	"xdial-backend/internal/scope"
	"xdial-backend/pkg/utils"
)

// Repository reads call rows. Every query is composed with the caller's
// scope via a join on the owning association; there is no unscoped read.
type Repository interface {
	ListByAssociation(ctx context.Context, sc scope.Scope, associationID int64) ([]Call, error)
	TransferStats(ctx context.Context, sc scope.Scope, associationID int64) (TransferStats, error)
}

type PgRepo struct {
	db utils.DB
}

func NewPgRepo(db utils.DB) *PgRepo { return &PgRepo{db: db} }

func (r *PgRepo) ListByAssociation(ctx context.Context, sc scope.Scope, associationID int64) ([]Call, error) {
	if sc.Empty() {
		return nil, nil
	}
	frag, args := sc.SQL("ccm.client_id", 1)
	q := fmt.Sprintf(`
SELECT c.id, c.client_campaign_model_id, c.number, COALESCE(c.transcription, ''),
       COALESCE(c.stage, 0), COALESCE(c.response_category, ''), COALESCE(c.list_id, ''),
       c.transferred, c.timestamp
FROM calls c
JOIN client_campaign_model ccm ON ccm.id = c.client_campaign_model_id
WHERE c.client_campaign_model_id = $1 AND %s
ORDER BY c.timestamp, c.id`, frag)

	rows, err := r.db.Query(ctx, q, append([]any{associationID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(
			&c.ID, &c.AssociationID, &c.Number, &c.Transcription,
			&c.Stage, &c.ResponseCategory, &c.ListID,
			&c.Transferred, &c.Timestamp,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PgRepo) TransferStats(ctx context.Context, sc scope.Scope, associationID int64) (TransferStats, error) {
	if sc.Empty() {
		return TransferStats{}, nil
	}
	frag, args := sc.SQL("ccm.client_id", 1)
	q := fmt.Sprintf(`
SELECT COUNT(*), COUNT(*) FILTER (WHERE c.transferred)
FROM calls c
JOIN client_campaign_model ccm ON ccm.id = c.client_campaign_model_id
WHERE c.client_campaign_model_id = $1 AND %s`, frag)

	var total, transferred int64
	if err := r.db.QueryRow(ctx, q, append([]any{associationID}, args...)...).Scan(&total, &transferred); err != nil {
		return TransferStats{}, err
	}
	return ComputeTransferStats(total, transferred), nil
}

// MemoryRepo is an in-memory call store for tests. Owners maps an
// association id to its client id so scoping behaves like the SQL join.
type MemoryRepo struct {
	mu     sync.Mutex
	Calls  []Call
	Owners map[int64]int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{Owners: map[int64]int64{}}
}

func (r *MemoryRepo) visible(sc scope.Scope, associationID int64) bool {
	owner, ok := r.Owners[associationID]
	return ok && sc.AllowsClient(owner)
}

func (r *MemoryRepo) ListByAssociation(ctx context.Context, sc scope.Scope, associationID int64) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.visible(sc, associationID) {
		return nil, nil
	}
	var out []Call
	for _, c := range r.Calls {
		if c.AssociationID == associationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) TransferStats(ctx context.Context, sc scope.Scope, associationID int64) (TransferStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.visible(sc, associationID) {
		return TransferStats{}, nil
	}
	var total, transferred int64
	for _, c := range r.Calls {
		if c.AssociationID != associationID {
			continue
		}
		total++
		if c.Transferred {
			transferred++
		}
	}
	return ComputeTransferStats(total, transferred), nil
}
