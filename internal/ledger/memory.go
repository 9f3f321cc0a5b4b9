package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matthieukhl/loyaltydesk/internal/models"
	"github.com/matthieukhl/loyaltydesk/internal/types"
)

// Memory is the ledger used when no database is configured. It starts from a
// fixed history; only entries recorded afterwards count toward Adjustment.
type Memory struct {
	mu          sync.Mutex
	history     []models.ActivityEntry
	recorded    []models.ActivityEntry
	submissions []models.Submission
	nextID      int64
	now         func() time.Time
}

var (
	_ types.ActivitySource = (*Memory)(nil)
	_ types.SubmissionLog  = (*Memory)(nil)
)

// NewMemory seeds the ledger with history attributed to accountID.
func NewMemory(accountID string, history []models.ActivityEntry) *Memory {
	m := &Memory{now: time.Now}
	for _, e := range history {
		if e.AccountID == "" {
			e.AccountID = accountID
		}
		if e.ID > m.nextID {
			m.nextID = e.ID
		}
		m.history = append(m.history, e)
	}
	return m
}

func (m *Memory) RecordActivity(_ context.Context, e models.ActivityEntry) (int64, error) {
	if e.Points <= 0 {
		return 0, fmt.Errorf("activity points must be positive, got %d", e.Points)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e.ID = m.nextID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = m.now()
	}
	m.recorded = append(m.recorded, e)
	return e.ID, nil
}

func (m *Memory) ListActivities(_ context.Context, accountID string, limit int) ([]models.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ActivityEntry{}
	for _, list := range [][]models.ActivityEntry{m.history, m.recorded} {
		for _, e := range list {
			if e.AccountID == accountID {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Adjustment(_ context.Context, accountID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, e := range m.recorded {
		if e.AccountID == accountID {
			total += e.SignedAmount()
		}
	}
	return total, nil
}

func (m *Memory) RecordSubmission(_ context.Context, s models.Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = int64(len(m.submissions) + 1)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.submissions = append(m.submissions, s)
	return s.ID, nil
}

func (m *Memory) ListSubmissions(_ context.Context, accountID string, limit int) ([]models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Submission{}
	for i := len(m.submissions) - 1; i >= 0; i-- {
		if m.submissions[i].AccountID == accountID {
			out = append(out, m.submissions[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
