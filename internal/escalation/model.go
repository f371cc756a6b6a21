package escalation

import "time"

// Status tracks where an escalation is in its lifecycle.
type Status string

const (
	// StatusQueued means created, waiting for a team member to pick it up
	StatusQueued Status = "queued"

	// StatusAssigned means an agent is rostered but has not started work
	StatusAssigned Status = "assigned"

	// StatusInProgress means an agent is actively working the escalation
	StatusInProgress Status = "in_progress"

	// StatusResolved means the escalation is closed. Terminal.
	StatusResolved Status = "resolved"
)

// Severity is the classifier-assigned urgency of an escalation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Team is an organizational queue with its own fixed SLA duration.
type Team string

const (
	TeamEmergency Team = "emergency_team"
	TeamFinance   Team = "finance_team"
	TeamTechnical Team = "technical_team"
	TeamDispute   Team = "dispute_resolution"
	TeamVIP       Team = "vip_team"
	TeamSupport   Team = "support_team"
)

// Agent identifies the support agent working an escalation. IDs are opaque;
// identity lives in a separate system.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Update is a single entry in an escalation's event log.
type Update struct {
	Type      string    `json:"type"`
	Note      string    `json:"note,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transition is a single entry in an escalation's status history.
type Transition struct {
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// Resolution is the structured outcome of a resolved escalation.
type Resolution struct {
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// Escalation is a unit of support work routed beyond first-line handling.
//
// Team and SLADeadline are fixed at creation and never change. Updates and
// History are parallel append-only logs: Updates is event-focused (who did
// what), History is transition-focused (status movements). Every status
// mutation appends exactly one entry to each.
type Escalation struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Type           string       `json:"type"`
	Description    string       `json:"description"`
	Severity       Severity     `json:"severity"`
	Status         Status       `json:"status"`
	Team           Team         `json:"assigned_team"`
	Agent          *Agent       `json:"assigned_agent,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	AssignedAt     time.Time    `json:"assigned_at,omitzero"`
	ResolvedAt     time.Time    `json:"resolved_at,omitzero"`
	SLADeadline    time.Time    `json:"sla_deadline"`
	ResolutionNote string       `json:"resolution_note,omitempty"`
	Resolution     *Resolution  `json:"resolution,omitempty"`
	ResolutionSecs float64      `json:"resolution_seconds,omitempty"`
	Updates        []Update     `json:"updates,omitempty"`
	History        []Transition `json:"history,omitempty"`
}

// Clone returns a deep copy so callers can't mutate stored state through
// shared slices or pointers.
func (e *Escalation) Clone() *Escalation {
	cp := *e
	if e.Agent != nil {
		agent := *e.Agent
		cp.Agent = &agent
	}
	if e.Resolution != nil {
		res := *e.Resolution
		cp.Resolution = &res
	}
	if e.Updates != nil {
		cp.Updates = make([]Update, len(e.Updates))
		copy(cp.Updates, e.Updates)
	}
	if e.History != nil {
		cp.History = make([]Transition, len(e.History))
		copy(cp.History, e.History)
	}
	return &cp
}

// severityRank maps severities to queue ordering weight. Unknown severities
// rank as medium, mirroring the coercion applied at create time.
func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityLow:
		return 1
	default:
		return 2
	}
}

// allowedTransitions is the lifecycle state machine. Resolved is reachable
// directly from any non-terminal state and has no outgoing edges.
var allowedTransitions = map[Status][]Status{
	StatusQueued:     {StatusAssigned, StatusInProgress, StatusResolved},
	StatusAssigned:   {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {},
}

// ValidTransition reports whether the state machine permits moving an
// escalation from one status to another.
func ValidTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is one of the four lifecycle statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusQueued, StatusAssigned, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// coerceSeverity defaults an absent severity to medium and folds unknown
// values into medium rather than rejecting them; the classifier upstream is
// not guaranteed to stay within the enum.
func coerceSeverity(s Severity) Severity {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return s
	default:
		return SeverityMedium
	}
}
