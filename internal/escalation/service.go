package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// CreateRequest is what the intake classifier hands us. The classifier alone
// decides whether escalation is warranted and picks type/severity; we only
// route and track.
type CreateRequest struct {
	UserID      string   `json:"user_id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity,omitempty"`
}

// Service is the escalation coordinator: the business boundary composing
// routing, lifecycle, queue views, SLA evaluation, and reporting.
type Service struct {
	store  Store
	logger log.Logger
	hooks  ServiceHooks

	// mu serializes mutating operations. Reads go through store snapshots
	// and run concurrently with writes. Contention is low on this path, so
	// one coarse lock beats a sharded table.
	mu sync.Mutex
}

// NewService creates a new escalation coordinator.
func NewService(store Store, logger log.Logger, hooks ServiceHooks) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:  store,
		logger: logger,
		hooks:  hooks,
	}
}

// Create accepts an escalation request, routes it to a team, computes its
// SLA deadline, and stores it queued. Severity defaults to medium when
// absent and unknown severities are coerced to medium.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Escalation, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if req.Type == "" {
		return nil, fmt.Errorf("%w: type is required", ErrInvalidInput)
	}

	now := time.Now()
	team := RouteTeam(req.Type)

	e := &Escalation{
		ID:          ulid.Make().String(),
		UserID:      req.UserID,
		Type:        req.Type,
		Description: req.Description,
		Severity:    coerceSeverity(req.Severity),
		Status:      StatusQueued,
		Team:        team,
		CreatedAt:   now,
		SLADeadline: now.Add(TeamSLA(team)),
		Updates: []Update{{
			Type:      "created",
			Timestamp: now,
		}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store escalation: %w", err)
	}

	if s.hooks.OnCreate != nil {
		s.hooks.OnCreate(e.Team, e.Type, e.Severity)
	}

	s.logger.Info(ctx, "escalation created",
		"escalation_id", e.ID,
		"type", e.Type,
		"severity", e.Severity,
		"team", e.Team,
		"sla_deadline", e.SLADeadline,
	)

	return e.Clone(), nil
}

// Assign attaches an agent to an escalation. With start=false the agent is
// rostered and the escalation moves to assigned; with start=true work begins
// immediately and it moves straight to in_progress. Both set AssignedAt and
// append one history entry.
func (s *Service) Assign(ctx context.Context, id, agentID, agentName string, start bool) (*Escalation, error) {
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", ErrInvalidInput)
	}

	to := StatusAssigned
	if start {
		to = StatusInProgress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, to); err != nil {
		return nil, err
	}

	ts := e.History[len(e.History)-1].Timestamp
	e.Agent = &Agent{ID: agentID, Name: agentName}
	if e.AssignedAt.IsZero() {
		e.AssignedAt = ts
	}
	e.Updates = append(e.Updates, Update{
		Type:      "assigned",
		AgentID:   agentID,
		AgentName: agentName,
		Timestamp: ts,
	})

	if err := s.store.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store escalation: %w", err)
	}
	s.observeTransition(e)

	s.logger.Info(ctx, "escalation assigned",
		"escalation_id", e.ID,
		"agent_id", agentID,
		"status", e.Status,
	)

	return e.Clone(), nil
}

// UpdateStatus advances an escalation's lifecycle and records the note.
// Moving to resolved stamps ResolvedAt and the resolution time.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status, note string) (*Escalation, error) {
	if !ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(e, to); err != nil {
		return nil, err
	}

	if note != "" {
		e.ResolutionNote = note
	}
	if (to == StatusAssigned || to == StatusInProgress) && e.AssignedAt.IsZero() {
		e.AssignedAt = e.History[len(e.History)-1].Timestamp
	}
	if to == StatusResolved {
		s.stampResolved(e)
	}
	e.Updates = append(e.Updates, Update{
		Type:      "status_change",
		Note:      note,
		Timestamp: e.History[len(e.History)-1].Timestamp,
	})

	if err := s.store.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store escalation: %w", err)
	}
	s.observeTransition(e)
	if to == StatusResolved && s.hooks.OnResolve != nil {
		s.hooks.OnResolve(e.Team, e.ResolutionSecs, e.ResolvedAt.After(e.SLADeadline))
	}

	s.logger.Info(ctx, "escalation status updated",
		"escalation_id", e.ID,
		"status", e.Status,
	)

	return e.Clone(), nil
}

// Resolve closes an escalation from whatever non-terminal state it is in,
// recording the structured outcome. Resolving an already-resolved
// escalation is rejected with ErrAlreadyResolved.
func (s *Service) Resolve(ctx context.Context, id string, res *Resolution) (*Escalation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusResolved {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResolved, id)
	}

	if err := s.transition(e, StatusResolved); err != nil {
		return nil, err
	}

	e.Resolution = res
	s.stampResolved(e)
	e.Updates = append(e.Updates, Update{
		Type:      "resolved",
		Timestamp: e.ResolvedAt,
	})

	if err := s.store.Put(ctx, e); err != nil {
		return nil, fmt.Errorf("store escalation: %w", err)
	}
	s.observeTransition(e)
	if s.hooks.OnResolve != nil {
		late := e.ResolvedAt.After(e.SLADeadline)
		s.hooks.OnResolve(e.Team, e.ResolutionSecs, late)
	}

	s.logger.Info(ctx, "escalation resolved",
		"escalation_id", e.ID,
		"team", e.Team,
		"resolution_seconds", e.ResolutionSecs,
	)

	return e.Clone(), nil
}

// Get retrieves an escalation by ID, including both logs.
func (s *Service) Get(ctx context.Context, id string) (*Escalation, bool, error) {
	return s.store.Get(ctx, id)
}

// fetch loads a record, translating absence into ErrNotFound.
func (s *Service) fetch(ctx context.Context, id string) (*Escalation, error) {
	e, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load escalation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// transition validates and applies a status change, appending exactly one
// history entry. The caller appends the matching update entry.
func (s *Service) transition(e *Escalation, to Status) error {
	if !ValidTransition(e.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, to)
	}
	e.History = append(e.History, Transition{
		From:      e.Status,
		To:        to,
		Timestamp: time.Now(),
	})
	e.Status = to
	return nil
}

func (s *Service) stampResolved(e *Escalation) {
	e.ResolvedAt = e.History[len(e.History)-1].Timestamp
	e.ResolutionSecs = e.ResolvedAt.Sub(e.CreatedAt).Seconds()
}

func (s *Service) observeTransition(e *Escalation) {
	if s.hooks.OnTransition == nil {
		return
	}
	last := e.History[len(e.History)-1]
	s.hooks.OnTransition(last.From, last.To)
}
