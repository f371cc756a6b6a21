package escalation

import (
	"context"
	"fmt"
	"time"
)

// SLAStatus is the live deadline check for a single escalation.
type SLAStatus struct {
	Breached      bool
	TimeRemaining time.Duration
}

// WaitTimes breaks down how long an escalation spent in each phase.
// Resolution is nil unless both AssignedAt and ResolvedAt are set.
type WaitTimes struct {
	Total      time.Duration
	Queue      time.Duration
	Resolution *time.Duration
}

// CheckSLA reports whether an escalation's deadline has passed and how much
// time remains. A breach never mutates the record; it is only surfaced.
func (s *Service) CheckSLA(ctx context.Context, id string) (*SLAStatus, error) {
	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	remaining := e.SLADeadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return &SLAStatus{
		Breached:      now.After(e.SLADeadline),
		TimeRemaining: remaining,
	}, nil
}

// Breaches returns every escalation whose resolution time, or the current
// time if still open, falls after its SLA deadline. This is the
// authoritative breach definition: it covers still-open-and-overdue and
// already-resolved-late records alike.
func (s *Service) Breaches(ctx context.Context) ([]*Escalation, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	now := time.Now()
	var breached []*Escalation
	for _, e := range all {
		if slaBreached(e, now) {
			breached = append(breached, e)
		}
	}
	return breached, nil
}

// WaitTimes returns the phase durations for one escalation.
func (s *Service) WaitTimes(ctx context.Context, id string) (*WaitTimes, error) {
	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	end := now
	if !e.ResolvedAt.IsZero() {
		end = e.ResolvedAt
	}

	queueEnd := end
	if !e.AssignedAt.IsZero() {
		queueEnd = e.AssignedAt
	}

	wt := &WaitTimes{
		Total: end.Sub(e.CreatedAt),
		Queue: queueEnd.Sub(e.CreatedAt),
	}
	if !e.AssignedAt.IsZero() && !e.ResolvedAt.IsZero() {
		d := e.ResolvedAt.Sub(e.AssignedAt)
		wt.Resolution = &d
	}
	return wt, nil
}

// slaBreached applies the breach rule: (resolvedAt ?? now) > slaDeadline.
func slaBreached(e *Escalation, now time.Time) bool {
	at := now
	if !e.ResolvedAt.IsZero() {
		at = e.ResolvedAt
	}
	return at.After(e.SLADeadline)
}
