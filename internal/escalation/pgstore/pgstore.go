// Package pgstore provides a PostgreSQL implementation of escalation.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation"
)

var tracer = otel.Tracer("github.com/collecokzn-creator/colleco-mvp-sub008/internal/escalation/pgstore")

//go:embed schema.sql
var schema string

// Store persists escalations in PostgreSQL. The base row and both
// append-only logs are written in a single transaction, so a record's
// status and its logs never go out of sync.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const escalationColumns = `id, user_id, type, description, severity, status, team,
	agent_id, agent_name, created_at, assigned_at, resolved_at, sla_deadline,
	resolution_note, resolution, resolution_s`

// Get retrieves an escalation by ID, logs included.
func (s *Store) Get(ctx context.Context, id string) (*escalation.Escalation, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + escalationColumns + ` FROM escalations WHERE id = $1`
	e, err := s.scanEscalationRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}

	if err := s.loadLogs(ctx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	return e, true, nil
}

// Put upserts the base row and appends any new log entries in one
// transaction. Logs are append-only: existing rows are never rewritten.
func (s *Store) Put(ctx context.Context, e *escalation.Escalation) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	if err := s.upsertEscalation(ctx, tx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.appendLogs(ctx, tx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns all escalations with their logs, ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*escalation.Escalation, error) {
	ctx, span := tracer.Start(ctx, "pgstore.List", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + escalationColumns + ` FROM escalations ORDER BY created_at, id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query escalations: %w", err)
	}
	defer rows.Close()

	var out []*escalation.Escalation
	byID := make(map[string]*escalation.Escalation)
	for rows.Next() {
		e, err := s.scanEscalationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		byID[e.ID] = e
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate escalations: %w", err)
	}

	if err := s.loadAllLogs(ctx, byID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return out, nil
}

func (s *Store) upsertEscalation(ctx context.Context, tx pgx.Tx, e *escalation.Escalation) error {
	var resolutionJSON []byte
	if e.Resolution != nil {
		var err error
		resolutionJSON, err = json.Marshal(e.Resolution)
		if err != nil {
			return fmt.Errorf("marshal resolution: %w", err)
		}
	}

	var agentID, agentName *string
	if e.Agent != nil {
		agentID = &e.Agent.ID
		agentName = &e.Agent.Name
	}

	query := `INSERT INTO escalations (
		id, user_id, type, description, severity, status, team,
		agent_id, agent_name, created_at, assigned_at, resolved_at, sla_deadline,
		resolution_note, resolution, resolution_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (id) DO UPDATE SET
		status          = EXCLUDED.status,
		agent_id        = EXCLUDED.agent_id,
		agent_name      = EXCLUDED.agent_name,
		assigned_at     = EXCLUDED.assigned_at,
		resolved_at     = EXCLUDED.resolved_at,
		resolution_note = EXCLUDED.resolution_note,
		resolution      = EXCLUDED.resolution,
		resolution_s    = EXCLUDED.resolution_s`

	_, err := tx.Exec(ctx, query,
		e.ID, e.UserID, e.Type, e.Description, string(e.Severity), string(e.Status), string(e.Team),
		agentID, agentName, e.CreatedAt, nullableTime(e.AssignedAt), nullableTime(e.ResolvedAt),
		e.SLADeadline, e.ResolutionNote, resolutionJSON, e.ResolutionSecs,
	)
	if err != nil {
		return fmt.Errorf("upsert escalation: %w", err)
	}
	return nil
}

// appendLogs inserts transition and update rows keyed by sequence. Rows
// already present are left untouched, which makes Put idempotent for the
// append-only logs.
func (s *Store) appendLogs(ctx context.Context, tx pgx.Tx, e *escalation.Escalation) error {
	for seq, tr := range e.History {
		_, err := tx.Exec(ctx,
			`INSERT INTO escalation_transitions (escalation_id, seq, from_status, to_status, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (escalation_id, seq) DO NOTHING`,
			e.ID, seq, string(tr.From), string(tr.To), tr.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert transition seq %d: %w", seq, err)
		}
	}
	for seq, u := range e.Updates {
		_, err := tx.Exec(ctx,
			`INSERT INTO escalation_updates (escalation_id, seq, type, note, agent_id, agent_name, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (escalation_id, seq) DO NOTHING`,
			e.ID, seq, u.Type, u.Note, u.AgentID, u.AgentName, u.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert update seq %d: %w", seq, err)
		}
	}
	return nil
}

// loadLogs reads both logs for a single escalation.
func (s *Store) loadLogs(ctx context.Context, e *escalation.Escalation) error {
	rows, err := s.pool.Query(ctx,
		`SELECT from_status, to_status, created_at
		 FROM escalation_transitions WHERE escalation_id = $1 ORDER BY seq`,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var from, to string
		var at time.Time
		if err := rows.Scan(&from, &to, &at); err != nil {
			return fmt.Errorf("scan transition: %w", err)
		}
		e.History = append(e.History, escalation.Transition{
			From:      escalation.Status(from),
			To:        escalation.Status(to),
			Timestamp: at,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate transitions: %w", err)
	}

	urows, err := s.pool.Query(ctx,
		`SELECT type, note, agent_id, agent_name, created_at
		 FROM escalation_updates WHERE escalation_id = $1 ORDER BY seq`,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("query updates: %w", err)
	}
	defer urows.Close()

	for urows.Next() {
		var u escalation.Update
		if err := urows.Scan(&u.Type, &u.Note, &u.AgentID, &u.AgentName, &u.Timestamp); err != nil {
			return fmt.Errorf("scan update: %w", err)
		}
		e.Updates = append(e.Updates, u)
	}
	if err := urows.Err(); err != nil {
		return fmt.Errorf("iterate updates: %w", err)
	}

	return nil
}

// loadAllLogs loads logs for every escalation in the map with two bulk
// queries instead of one pair per record.
func (s *Store) loadAllLogs(ctx context.Context, byID map[string]*escalation.Escalation) error {
	if len(byID) == 0 {
		return nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT escalation_id, from_status, to_status, created_at
		 FROM escalation_transitions ORDER BY escalation_id, seq`)
	if err != nil {
		return fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, from, to string
		var at time.Time
		if err := rows.Scan(&id, &from, &to, &at); err != nil {
			return fmt.Errorf("scan transition: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.History = append(e.History, escalation.Transition{
				From:      escalation.Status(from),
				To:        escalation.Status(to),
				Timestamp: at,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate transitions: %w", err)
	}

	urows, err := s.pool.Query(ctx,
		`SELECT escalation_id, type, note, agent_id, agent_name, created_at
		 FROM escalation_updates ORDER BY escalation_id, seq`)
	if err != nil {
		return fmt.Errorf("query updates: %w", err)
	}
	defer urows.Close()

	for urows.Next() {
		var id string
		var u escalation.Update
		if err := urows.Scan(&id, &u.Type, &u.Note, &u.AgentID, &u.AgentName, &u.Timestamp); err != nil {
			return fmt.Errorf("scan update: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.Updates = append(e.Updates, u)
		}
	}
	if err := urows.Err(); err != nil {
		return fmt.Errorf("iterate updates: %w", err)
	}

	return nil
}

// scanEscalationRow scans a single row into an Escalation (without logs).
// Returns (nil, nil) when no row is found.
func (s *Store) scanEscalationRow(row pgx.Row) (*escalation.Escalation, error) {
	var (
		e                escalation.Escalation
		severity, status string
		team             string
		agentID          *string
		agentName        *string
		assignedAt       *time.Time
		resolvedAt       *time.Time
		resolutionJSON   []byte
	)

	err := row.Scan(
		&e.ID, &e.UserID, &e.Type, &e.Description, &severity, &status, &team,
		&agentID, &agentName, &e.CreatedAt, &assignedAt, &resolvedAt, &e.SLADeadline,
		&e.ResolutionNote, &resolutionJSON, &e.ResolutionSecs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	e.Severity = escalation.Severity(severity)
	e.Status = escalation.Status(status)
	e.Team = escalation.Team(team)

	if agentID != nil {
		e.Agent = &escalation.Agent{ID: *agentID}
		if agentName != nil {
			e.Agent.Name = *agentName
		}
	}
	if assignedAt != nil {
		e.AssignedAt = *assignedAt
	}
	if resolvedAt != nil {
		e.ResolvedAt = *resolvedAt
	}
	if len(resolutionJSON) > 0 {
		var res escalation.Resolution
		if err := json.Unmarshal(resolutionJSON, &res); err != nil {
			return nil, fmt.Errorf("unmarshal resolution: %w", err)
		}
		e.Resolution = &res
	}

	return &e, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
