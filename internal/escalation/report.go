package escalation

import (
	"context"
	"fmt"
	"time"
)

// ReportEntry is a redacted view of one escalation for exports. The
// free-text description is deliberately absent: reports leave the system
// and must not leak sensitive customer content.
type ReportEntry struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Severity   Severity  `json:"severity"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitzero"`
}

// Report is a time-bounded, optionally team-scoped compliance summary.
type Report struct {
	Start                time.Time     `json:"start"`
	End                  time.Time     `json:"end"`
	Team                 Team          `json:"team,omitempty"`
	Total                int           `json:"total"`
	Resolved             int           `json:"resolved"`
	AvgResolutionSeconds float64       `json:"avg_resolution_seconds"`
	SLACompliance        float64       `json:"sla_compliance"`
	Escalations          []ReportEntry `json:"escalations"`
}

// Report summarizes escalations created within [start, end], optionally
// filtered to one team.
func (s *Service) Report(ctx context.Context, start, end time.Time, team Team) (*Report, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalidInput)
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	var scoped []*Escalation
	for _, e := range all {
		if e.CreatedAt.Before(start) || e.CreatedAt.After(end) {
			continue
		}
		if team != "" && e.Team != team {
			continue
		}
		scoped = append(scoped, e)
	}

	m := aggregate(scoped, time.Now())

	entries := make([]ReportEntry, 0, len(scoped))
	for _, e := range scoped {
		entries = append(entries, ReportEntry{
			ID:         e.ID,
			Type:       e.Type,
			Severity:   e.Severity,
			Status:     e.Status,
			CreatedAt:  e.CreatedAt,
			ResolvedAt: e.ResolvedAt,
		})
	}

	return &Report{
		Start:                start,
		End:                  end,
		Team:                 team,
		Total:                m.Total,
		Resolved:             m.Resolved,
		AvgResolutionSeconds: m.AvgResolutionSeconds,
		SLACompliance:        m.ComplianceRate,
		Escalations:          entries,
	}, nil
}
