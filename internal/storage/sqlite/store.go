// Package sqlite persists assessment sessions: a summary row per processed
// frame and every quality-tier transition, in a SQLite file migrated from
// embedded schema files.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/realtime"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSessionNotFound is returned when a session ID has no row.
var ErrSessionNotFound = errors.New("session not found")

// dsnPragmas apply to every pooled connection.
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)"

// Store wraps the session database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// A single writer keeps SQLite free of SQLITE_BUSY between the
	// recorder and readers in the same process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// MigrateUp runs all pending migrations. It is a no-op at the latest
// version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close s.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version, 0 when none.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// Session is one recorded assessment run.
type Session struct {
	SessionID  string     `json:"session_id"`
	Label      string     `json:"label"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ConfigJSON string     `json:"config_json,omitempty"`
}

// StartSession inserts a new session and returns its ID.
func (s *Store) StartSession(ctx context.Context, label string, startedAt time.Time, configJSON string) (string, error) {
	id := uuid.New().String()
	var cfg any
	if configJSON != "" {
		cfg = configJSON
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assessment_sessions (session_id, label, started_at, config_json) VALUES (?, ?, ?, ?)`,
		id, label, startedAt.UnixNano(), cfg)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assessment_sessions SET ended_at = ? WHERE session_id = ?`,
		endedAt.UnixNano(), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// GetSession loads one session.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var (
		sess    Session
		started int64
		ended   sql.NullInt64
		cfg     sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, label, started_at, ended_at, config_json FROM assessment_sessions WHERE session_id = ?`,
		sessionID).Scan(&sess.SessionID, &sess.Label, &started, &ended, &cfg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session %s: %w", sessionID, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		t := time.Unix(0, ended.Int64).UTC()
		sess.EndedAt = &t
	}
	sess.ConfigJSON = cfg.String
	return &sess, nil
}

// ResultRow is the persisted summary of one processed frame.
type ResultRow struct {
	ResultID         string        `json:"result_id"`
	SessionID        string        `json:"session_id"`
	TimestampMs      int64         `json:"timestamp_ms"`
	Tier             biomech.Tier  `json:"tier"`
	ProcessingTime   time.Duration `json:"processing_ns"`
	Confidence       float64       `json:"confidence"`
	QualityOverall   float64       `json:"quality_overall"`
	AsymmetryOverall float64       `json:"asymmetry_overall"`
	PostureOverall   float64       `json:"posture_overall"`
	PatternType      string        `json:"pattern_type,omitempty"`
	PatternPhase     string        `json:"pattern_phase,omitempty"`
	FatigueScore     *float64      `json:"fatigue_score,omitempty"`
	Compensations    int           `json:"compensations"`
}

// RowFromResult flattens a result for storage.
func RowFromResult(sessionID string, r *biomech.Result) ResultRow {
	row := ResultRow{
		SessionID:        sessionID,
		TimestampMs:      r.TimestampMs,
		Tier:             r.Tier,
		ProcessingTime:   r.ProcessingTime,
		Confidence:       r.Confidence,
		QualityOverall:   r.Quality.Overall,
		AsymmetryOverall: r.Asymmetry.Overall,
		PostureOverall:   r.Posture.Overall,
		Compensations:    len(r.Compensations),
	}
	if r.Pattern != nil {
		row.PatternType = string(r.Pattern.Type)
		row.PatternPhase = string(r.Pattern.Phase)
	}
	if r.Fatigue != nil {
		score := r.Fatigue.Score
		row.FatigueScore = &score
	}
	return row
}

// InsertResult persists the summary of r under sessionID.
func (s *Store) InsertResult(ctx context.Context, sessionID string, r *biomech.Result) error {
	row := RowFromResult(sessionID, r)
	row.ResultID = uuid.New().String()

	var patternType, patternPhase any
	if row.PatternType != "" {
		patternType, patternPhase = row.PatternType, row.PatternPhase
	}
	var fatigue any
	if row.FatigueScore != nil {
		fatigue = *row.FatigueScore
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assessment_results (
			result_id, session_id, timestamp_ms, tier, processing_ns, confidence,
			quality_overall, asymmetry_overall, posture_overall,
			pattern_type, pattern_phase, fatigue_score, compensations
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ResultID, row.SessionID, row.TimestampMs, row.Tier.String(), int64(row.ProcessingTime), row.Confidence,
		row.QualityOverall, row.AsymmetryOverall, row.PostureOverall,
		patternType, patternPhase, fatigue, row.Compensations,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ListResults returns a session's results in timestamp order. limit <= 0
// returns all of them.
func (s *Store) ListResults(ctx context.Context, sessionID string, limit int) ([]ResultRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT result_id, session_id, timestamp_ms, tier, processing_ns, confidence,
			quality_overall, asymmetry_overall, posture_overall,
			pattern_type, pattern_phase, fatigue_score, compensations
		FROM assessment_results
		WHERE session_id = ?
		ORDER BY timestamp_ms ASC, rowid ASC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var (
			row          ResultRow
			tier         string
			processingNs int64
			patternType  sql.NullString
			patternPhase sql.NullString
			fatigueScore sql.NullFloat64
		)
		if err := rows.Scan(&row.ResultID, &row.SessionID, &row.TimestampMs, &tier, &processingNs, &row.Confidence,
			&row.QualityOverall, &row.AsymmetryOverall, &row.PostureOverall,
			&patternType, &patternPhase, &fatigueScore, &row.Compensations); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if row.Tier, err = biomech.ParseTier(tier); err != nil {
			return nil, fmt.Errorf("scan result %s: %w", row.ResultID, err)
		}
		row.ProcessingTime = time.Duration(processingNs)
		row.PatternType = patternType.String
		row.PatternPhase = patternPhase.String
		if fatigueScore.Valid {
			v := fatigueScore.Float64
			row.FatigueScore = &v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}

// InsertTransition persists a tier change under sessionID.
func (s *Store) InsertTransition(ctx context.Context, sessionID string, t realtime.Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tier_transitions (
			transition_id, session_id, at_ns, from_tier, to_tier,
			frame_skip, mean_latency_ns, drop_rate, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, t.At.UnixNano(), t.From.String(), t.To.String(),
		t.FrameSkip, int64(t.MeanLatency), t.DropRate, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// ListTransitions returns a session's tier changes, oldest first.
func (s *Store) ListTransitions(ctx context.Context, sessionID string) ([]realtime.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at_ns, from_tier, to_tier, frame_skip, mean_latency_ns, drop_rate, reason
		FROM tier_transitions
		WHERE session_id = ?
		ORDER BY at_ns ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []realtime.Transition
	for rows.Next() {
		var (
			t          realtime.Transition
			atNs, mean int64
			from, to   string
		)
		if err := rows.Scan(&atNs, &from, &to, &t.FrameSkip, &mean, &t.DropRate, &t.Reason); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if t.From, err = biomech.ParseTier(from); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if t.To, err = biomech.ParseTier(to); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.At = time.Unix(0, atNs).UTC()
		t.MeanLatency = time.Duration(mean)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return out, nil
}

// SessionSummary aggregates a session's results.
type SessionSummary struct {
	SessionID      string               `json:"session_id"`
	Results        int                  `json:"results"`
	Transitions    int                  `json:"transitions"`
	MeanLatency    time.Duration        `json:"mean_latency_ns"`
	MaxLatency     time.Duration        `json:"max_latency_ns"`
	MeanQuality    float64              `json:"mean_quality"`
	MeanConfidence float64              `json:"mean_confidence"`
	TierCounts     map[biomech.Tier]int `json:"tier_counts"`
	PatternCounts  map[string]int       `json:"pattern_counts,omitempty"`
}

// SessionSummary computes the aggregate view of one session.
func (s *Store) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	sum := &SessionSummary{
		SessionID:     sessionID,
		TierCounts:    make(map[biomech.Tier]int),
		PatternCounts: make(map[string]int),
	}

	var meanNs, maxNs, quality, confidence sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(processing_ns), MAX(processing_ns), AVG(quality_overall), AVG(confidence)
		FROM assessment_results WHERE session_id = ?`, sessionID).
		Scan(&sum.Results, &meanNs, &maxNs, &quality, &confidence)
	if err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}
	sum.MeanLatency = time.Duration(meanNs.Float64)
	sum.MaxLatency = time.Duration(maxNs.Float64)
	sum.MeanQuality = quality.Float64
	sum.MeanConfidence = confidence.Float64

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tier_transitions WHERE session_id = ?`, sessionID).Scan(&sum.Transitions); err != nil {
		return nil, fmt.Errorf("session summary: %w", err)
	}

	if err := s.countBy(ctx, `SELECT tier, COUNT(*) FROM assessment_results WHERE session_id = ? GROUP BY tier`,
		sessionID, func(key string, n int) error {
			tier, err := biomech.ParseTier(key)
			if err != nil {
				return err
			}
			sum.TierCounts[tier] = n
			return nil
		}); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, `SELECT pattern_type, COUNT(*) FROM assessment_results
		WHERE session_id = ? AND pattern_type IS NOT NULL GROUP BY pattern_type`,
		sessionID, func(key string, n int) error {
			sum.PatternCounts[key] = n
			return nil
		}); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) countBy(ctx context.Context, query, sessionID string, fn func(key string, n int) error) error {
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("session summary: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("session summary: %w", err)
		}
		if err := fn(key, n); err != nil {
			return fmt.Errorf("session summary: %w", err)
		}
	}
	return rows.Err()
}
