package escalation

import (
	"context"
	"fmt"
	"time"
)

// TeamMetrics is the SLA rollup for one team, or global when Team is empty.
type TeamMetrics struct {
	Team                 Team    `json:"team,omitempty"`
	Total                int     `json:"total"`
	Resolved             int     `json:"resolved"`
	Breached             int     `json:"breached"`
	ComplianceRate       float64 `json:"compliance_rate"`
	AvgResolutionSeconds float64 `json:"avg_resolution_seconds"`
}

// Summary is the flat dashboard counter block.
type Summary struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// DashboardMetrics is the full dashboard rollup.
type DashboardMetrics struct {
	ByStatus   map[Status]int   `json:"by_status"`
	ByTeam     map[Team]int     `json:"by_team"`
	BySeverity map[Severity]int `json:"by_severity"`
	ByType     map[string]int   `json:"by_type"`
	SLA        *TeamMetrics     `json:"sla"`
	Summary    Summary          `json:"summary"`
}

// TeamMetrics aggregates totals, breaches, compliance, and average
// resolution time for one team. An empty team aggregates globally.
// Compliance is 100 when there is nothing to measure.
func (s *Service) TeamMetrics(ctx context.Context, team Team) (*TeamMetrics, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	var scoped []*Escalation
	for _, e := range all {
		if team != "" && e.Team != team {
			continue
		}
		scoped = append(scoped, e)
	}

	m := aggregate(scoped, time.Now())
	m.Team = team
	return m, nil
}

// Dashboard builds the by-status/team/severity/type counts, the global SLA
// block, and the flat summary in one pass over a store snapshot.
func (s *Service) Dashboard(ctx context.Context) (*DashboardMetrics, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list escalations: %w", err)
	}

	d := &DashboardMetrics{
		ByStatus:   make(map[Status]int),
		ByTeam:     make(map[Team]int),
		BySeverity: make(map[Severity]int),
		ByType:     make(map[string]int),
	}

	for _, e := range all {
		d.ByStatus[e.Status]++
		d.ByTeam[e.Team]++
		d.BySeverity[e.Severity]++
		d.ByType[e.Type]++
	}

	d.SLA = aggregate(all, time.Now())
	d.Summary = Summary{
		Total:      len(all),
		Queued:     d.ByStatus[StatusQueued],
		Assigned:   d.ByStatus[StatusAssigned],
		InProgress: d.ByStatus[StatusInProgress],
		Resolved:   d.ByStatus[StatusResolved],
	}

	return d, nil
}

// aggregate computes the SLA rollup over a set of escalations.
func aggregate(set []*Escalation, now time.Time) *TeamMetrics {
	m := &TeamMetrics{Total: len(set), ComplianceRate: 100}

	var resolutionSum time.Duration
	var resolutionCount int

	for _, e := range set {
		if slaBreached(e, now) {
			m.Breached++
		}
		if e.Status != StatusResolved {
			continue
		}
		m.Resolved++
		if !e.ResolvedAt.IsZero() && !e.CreatedAt.IsZero() {
			resolutionSum += e.ResolvedAt.Sub(e.CreatedAt)
			resolutionCount++
		}
	}

	if m.Total > 0 {
		m.ComplianceRate = float64(m.Total-m.Breached) / float64(m.Total) * 100
	}
	if resolutionCount > 0 {
		m.AvgResolutionSeconds = (resolutionSum / time.Duration(resolutionCount)).Seconds()
	}
	return m
}
