package escalation

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// QueueItem is a queued escalation annotated with its numeric priority and
// how long it has been waiting.
type QueueItem struct {
	Escalation  *Escalation `json:"escalation"`
	Priority    int         `json:"priority"`
	WaitSeconds float64     `json:"wait_seconds"`
}

// Queue returns every queued escalation ordered by severity rank descending,
// then creation time ascending. The sort is stable, so the queue is a
// priority queue with FIFO fairness inside each severity band.
func (s *Service) Queue(ctx context.Context) ([]QueueItem, error) {
	return s.queue(ctx, "")
}

// TeamQueue returns the priority queue filtered to a single team.
func (s *Service) TeamQueue(ctx context.Context, team Team) ([]QueueItem, error) {
	return s.queue(ctx, team)
}

// OldestFirst returns queued escalations ordered purely by age, oldest
// first. A secondary operational view for spotting starvation.
func (s *Service) OldestFirst(ctx context.Context) ([]QueueItem, error) {
	items, err := s.queue(ctx, "")
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(items, func(a, b QueueItem) int {
		return a.Escalation.CreatedAt.Compare(b.Escalation.CreatedAt)
	})
	return items, nil
}

func (s *Service) queue(ctx context.Context, team Team) ([]QueueItem, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	now := time.Now()
	items := make([]QueueItem, 0, len(all))
	for _, e := range all {
		if e.Status != StatusQueued {
			continue
		}
		if team != "" && e.Team != team {
			continue
		}
		items = append(items, QueueItem{
			Escalation:  e,
			Priority:    severityRank(e.Severity),
			WaitSeconds: now.Sub(e.CreatedAt).Seconds(),
		})
	}

	slices.SortStableFunc(items, func(a, b QueueItem) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.Escalation.CreatedAt.Compare(b.Escalation.CreatedAt)
	})

	return items, nil
}
