package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

// mockStore implements Store for testing.
type mockStore struct {
	mu      sync.Mutex
	records map[string]*Escalation
	putErr  error
	getErr  error
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[string]*Escalation)}
}

func (m *mockStore) Get(_ context.Context, id string) (*Escalation, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	e, ok := m.records[id]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

func (m *mockStore) Put(_ context.Context, e *Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.records[e.ID] = e.Clone()
	return nil
}

func (m *mockStore) List(_ context.Context) ([]*Escalation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*Escalation, 0, len(m.records))
	for _, e := range m.records {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (m *mockStore) seed(e *Escalation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[e.ID] = e
}

func newTestService(store Store) *Service {
	return NewService(store, log.Nop(), ServiceHooks{})
}

func TestCreate_RoutesAndQueues(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)

	e, err := svc.Create(context.Background(), &CreateRequest{
		UserID:      "u-1",
		Type:        "payment_issue",
		Description: "double charged for booking",
		Severity:    SeverityHigh,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if e.ID == "" {
		t.Error("expected non-empty ID")
	}
	if e.Status != StatusQueued {
		t.Errorf("Status = %q, want %q", e.Status, StatusQueued)
	}
	if e.Team != TeamFinance {
		t.Errorf("Team = %q, want %q", e.Team, TeamFinance)
	}
	if want := e.CreatedAt.Add(120 * time.Minute); !e.SLADeadline.Equal(want) {
		t.Errorf("SLADeadline = %v, want %v", e.SLADeadline, want)
	}
	if len(e.Updates) != 1 || e.Updates[0].Type != "created" {
		t.Errorf("Updates = %+v, want single created entry", e.Updates)
	}
	if len(e.History) != 0 {
		t.Errorf("History = %+v, want empty at creation", e.History)
	}

	if _, ok, _ := store.Get(context.Background(), e.ID); !ok {
		t.Error("expected record to be stored")
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	for _, req := range []*CreateRequest{
		{Type: "complaint"},
		{UserID: "u-1"},
	} {
		_, err := svc.Create(context.Background(), req)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestCreate_CoercesUnknownSeverity(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	for _, sev := range []Severity{"", "urgent!!", "CRITICAL"} {
		e, err := svc.Create(context.Background(), &CreateRequest{
			UserID: "u-1", Type: "complaint", Severity: sev,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if e.Severity != SeverityMedium {
			t.Errorf("Severity(%q) = %q, want medium", sev, e.Severity)
		}
	}
}

func TestCreate_UnknownTypeFallsBackToSupport(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	e, err := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "mystery"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.Team != TeamSupport {
		t.Errorf("Team = %q, want %q", e.Team, TeamSupport)
	}
	if want := e.CreatedAt.Add(120 * time.Minute); !e.SLADeadline.Equal(want) {
		t.Errorf("SLADeadline = %v, want %v", e.SLADeadline, want)
	}
}

func TestCreate_StoreError(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.putErr = errors.New("db down")
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "urgent"})
	if err == nil {
		t.Fatal("expected error from store")
	}
}

func TestAssign_Rostered(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	svc := newTestService(store)
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "technical"})

	e, err := svc.Assign(context.Background(), created.ID, "agent-7", "Sam", false)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if e.Status != StatusAssigned {
		t.Errorf("Status = %q, want %q", e.Status, StatusAssigned)
	}
	if e.Agent == nil || e.Agent.ID != "agent-7" || e.Agent.Name != "Sam" {
		t.Errorf("Agent = %+v, want agent-7/Sam", e.Agent)
	}
	if e.AssignedAt.IsZero() {
		t.Error("expected AssignedAt to be set")
	}
	if len(e.History) != 1 {
		t.Fatalf("history entries = %d, want 1", len(e.History))
	}
	if tr := e.History[0]; tr.From != StatusQueued || tr.To != StatusAssigned {
		t.Errorf("transition = %s -> %s, want queued -> assigned", tr.From, tr.To)
	}
	if !e.AssignedAt.Equal(e.History[0].Timestamp) {
		t.Error("AssignedAt should match the transition timestamp")
	}
	if last := e.Updates[len(e.Updates)-1]; last.Type != "assigned" || last.AgentID != "agent-7" {
		t.Errorf("last update = %+v, want assigned by agent-7", last)
	}
}

func TestAssign_StartOfWork(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "urgent"})

	e, err := svc.Assign(context.Background(), created.ID, "agent-1", "", true)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if e.Status != StatusInProgress {
		t.Errorf("Status = %q, want %q", e.Status, StatusInProgress)
	}
	if e.AssignedAt.IsZero() {
		t.Error("expected AssignedAt to be set")
	}
	if tr := e.History[0]; tr.From != StatusQueued || tr.To != StatusInProgress {
		t.Errorf("transition = %s -> %s, want queued -> in_progress", tr.From, tr.To)
	}
}

func TestAssign_Validation(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	_, err := svc.Assign(context.Background(), "any", "", "", false)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	_, err = svc.Assign(context.Background(), "missing", "agent-1", "", false)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAssign_KeepsFirstAssignedAt(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "technical"})

	first, err := svc.Assign(context.Background(), created.ID, "agent-1", "", false)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	second, err := svc.Assign(context.Background(), created.ID, "agent-2", "", true)
	if err != nil {
		t.Fatalf("Assign start: %v", err)
	}

	if !second.AssignedAt.Equal(first.AssignedAt) {
		t.Errorf("AssignedAt changed on reassignment: %v -> %v", first.AssignedAt, second.AssignedAt)
	}
	if second.Agent.ID != "agent-2" {
		t.Errorf("Agent.ID = %q, want agent-2", second.Agent.ID)
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	_, err := svc.UpdateStatus(context.Background(), "any", "escalated", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "dispute"})
	if _, err := svc.Assign(context.Background(), created.ID, "agent-1", "", true); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// in_progress cannot move back to assigned or queued.
	for _, to := range []Status{StatusAssigned, StatusQueued} {
		_, err := svc.UpdateStatus(context.Background(), created.ID, to, "")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("UpdateStatus(%q) err = %v, want ErrInvalidTransition", to, err)
		}
	}
}

func TestUpdateStatus_ResolveStampsTimes(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "complaint"})

	e, err := svc.UpdateStatus(context.Background(), created.ID, StatusResolved, "refund issued")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if e.ResolvedAt.IsZero() {
		t.Fatal("expected ResolvedAt to be set")
	}
	if e.ResolutionNote != "refund issued" {
		t.Errorf("ResolutionNote = %q, want %q", e.ResolutionNote, "refund issued")
	}
	if want := e.ResolvedAt.Sub(e.CreatedAt).Seconds(); e.ResolutionSecs != want {
		t.Errorf("ResolutionSecs = %v, want %v", e.ResolutionSecs, want)
	}
}

func TestUpdateStatus_InProgressSetsAssignedAt(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "technical"})

	e, err := svc.UpdateStatus(context.Background(), created.ID, StatusInProgress, "")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if e.AssignedAt.IsZero() {
		t.Error("expected AssignedAt to be set when work starts")
	}
}

func TestResolve_Terminal(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	created, _ := svc.Create(context.Background(), &CreateRequest{UserID: "u-1", Type: "urgent"})

	e, err := svc.Resolve(context.Background(), created.ID, &Resolution{
		Outcome: "refunded",
		Detail:  "full refund processed",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if e.Status != StatusResolved {
		t.Errorf("Status = %q, want resolved", e.Status)
	}
	if e.Resolution == nil || e.Resolution.Outcome != "refunded" {
		t.Errorf("Resolution = %+v, want outcome refunded", e.Resolution)
	}
	if e.ResolvedAt.IsZero() {
		t.Error("expected ResolvedAt to be set")
	}
	if last := e.Updates[len(e.Updates)-1]; last.Type != "resolved" {
		t.Errorf("last update type = %q, want resolved", last.Type)
	}

	// Terminal: a second resolve is rejected without touching the record.
	_, err = svc.Resolve(context.Background(), created.ID, &Resolution{Outcome: "again"})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second Resolve err = %v, want ErrAlreadyResolved", err)
	}

	got, _, _ := svc.Get(context.Background(), created.ID)
	if got.Resolution.Outcome != "refunded" {
		t.Errorf("Resolution.Outcome = %q, want refunded after rejected re-resolve", got.Resolution.Outcome)
	}
}

func TestResolve_FromEveryNonTerminalState(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	ctx := context.Background()

	prepare := map[string]func(id string) error{
		"queued":   func(string) error { return nil },
		"assigned": func(id string) error { _, err := svc.Assign(ctx, id, "a-1", "", false); return err },
		"in_progress": func(id string) error {
			_, err := svc.Assign(ctx, id, "a-1", "", true)
			return err
		},
	}

	for name, setup := range prepare {
		created, _ := svc.Create(ctx, &CreateRequest{UserID: "u-1", Type: "complaint"})
		if err := setup(created.ID); err != nil {
			t.Fatalf("%s setup: %v", name, err)
		}
		e, err := svc.Resolve(ctx, created.ID, &Resolution{Outcome: "done"})
		if err != nil {
			t.Fatalf("Resolve from %s: %v", name, err)
		}
		if e.Status != StatusResolved {
			t.Errorf("Resolve from %s: Status = %q, want resolved", name, e.Status)
		}
	}
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())

	_, err := svc.Resolve(context.Background(), "missing", &Resolution{Outcome: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLifecycle_LogsStayParallel(t *testing.T) {
	t.Parallel()

	svc := newTestService(newMockStore())
	ctx := context.Background()

	created, _ := svc.Create(ctx, &CreateRequest{UserID: "u-1", Type: "vip_support"})
	_, _ = svc.Assign(ctx, created.ID, "agent-9", "Priya", false)
	_, _ = svc.UpdateStatus(ctx, created.ID, StatusInProgress, "looking into it")
	e, err := svc.Resolve(ctx, created.ID, &Resolution{Outcome: "rebooked"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Every mutation after creation appends one entry to each log.
	if len(e.History) != 3 {
		t.Errorf("history entries = %d, want 3", len(e.History))
	}
	if len(e.Updates) != 4 {
		t.Errorf("update entries = %d, want 4 (created + 3 mutations)", len(e.Updates))
	}

	wantPath := []Transition{
		{From: StatusQueued, To: StatusAssigned},
		{From: StatusAssigned, To: StatusInProgress},
		{From: StatusInProgress, To: StatusResolved},
	}
	for i, want := range wantPath {
		got := e.History[i]
		if got.From != want.From || got.To != want.To {
			t.Errorf("history[%d] = %s -> %s, want %s -> %s", i, got.From, got.To, want.From, want.To)
		}
		if got.Timestamp.IsZero() {
			t.Errorf("history[%d] has zero timestamp", i)
		}
	}
}

func TestHooks_FireOnLifecycle(t *testing.T) {
	t.Parallel()

	var (
		mu          sync.Mutex
		created     int
		transitions int
		resolved    int
		late        bool
	)
	hooks := ServiceHooks{
		OnCreate: func(Team, string, Severity) {
			mu.Lock()
			created++
			mu.Unlock()
		},
		OnTransition: func(Status, Status) {
			mu.Lock()
			transitions++
			mu.Unlock()
		},
		OnResolve: func(_ Team, _ float64, wasLate bool) {
			mu.Lock()
			resolved++
			late = wasLate
			mu.Unlock()
		},
	}

	svc := NewService(newMockStore(), log.Nop(), hooks)
	ctx := context.Background()

	e, _ := svc.Create(ctx, &CreateRequest{UserID: "u-1", Type: "urgent"})
	_, _ = svc.Assign(ctx, e.ID, "a-1", "", false)
	_, _ = svc.Resolve(ctx, e.ID, &Resolution{Outcome: "ok"})

	mu.Lock()
	defer mu.Unlock()
	if created != 1 {
		t.Errorf("OnCreate calls = %d, want 1", created)
	}
	if transitions != 2 {
		t.Errorf("OnTransition calls = %d, want 2", transitions)
	}
	if resolved != 1 {
		t.Errorf("OnResolve calls = %d, want 1", resolved)
	}
	if late {
		t.Error("resolution within SLA reported as late")
	}
}

func TestGet_Passthrough(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	store.seed(&Escalation{ID: "esc-1", UserID: "u-1", Status: StatusQueued})
	svc := newTestService(store)

	got, ok, err := svc.Get(context.Background(), "esc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected escalation to be found")
	}
	if got.ID != "esc-1" {
		t.Errorf("ID = %q, want esc-1", got.ID)
	}

	_, ok, err = svc.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing ID")
	}
}
