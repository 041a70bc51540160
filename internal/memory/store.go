// Package memory persists past trading cases and finished sessions so later
// runs can learn from them. Retrieval is best effort: the debate pipeline
// treats an empty or failing memory as "no past cases" and keeps going.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tradecouncil/tradecouncil/internal/models"
	"github.com/tradecouncil/tradecouncil/pkg/sqlite"
)

// Retriever is the lookup capability the researcher and trader stages use.
type Retriever interface {
	Retrieve(ctx context.Context, symbol, tradeDate string, k int) ([]models.PastCase, error)
}

// HistoryEntry is one row of the session history listing.
type HistoryEntry struct {
	ID         string
	Symbol     string
	TradeDate  string
	Action     string
	Status     string
	FinishedAt string
}

// Store is the sqlite-backed implementation of session history and past-case
// memory.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    action TEXT,
    status TEXT NOT NULL,
    rationale TEXT,
    situation TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS past_cases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    symbol TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    situation TEXT NOT NULL,
    recommendation TEXT NOT NULL,
    returns REAL NOT NULL DEFAULT 0,
    recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_past_cases_symbol ON past_cases(symbol, recorded_at);
CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// SaveSession records a finished session, whatever its outcome. The stored
// situation text is what Reflect later turns into a past case.
func (s *Store) SaveSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}

	action := ""
	rationale := ""
	if sess.Decision != nil {
		action = sess.Decision.Action.String()
		rationale = sess.Decision.Rationale
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, symbol, trade_date, action, status, rationale, situation)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    action=excluded.action,
    status=excluded.status,
    rationale=excluded.rationale,
    situation=excluded.situation
`, sess.ID, sess.Settings.Symbol, sess.Settings.TradeDate,
		action, sess.Status.String(), rationale, sess.CombinedReports())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// AddCase stores one past case directly.
func (s *Store) AddCase(ctx context.Context, c models.PastCase) error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("past case symbol is required")
	}
	recordedAt := c.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO past_cases (symbol, trade_date, situation, recommendation, returns, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)
`, c.Symbol, c.TradeDate, c.Situation, c.Recommendation, c.Returns, recordedAt)
	if err != nil {
		return fmt.Errorf("insert past case: %w", err)
	}
	return nil
}

// Reflect converts a stored session into a past case, annotated with the
// realized position returns and the lesson drawn from them.
func (s *Store) Reflect(ctx context.Context, sessionID string, positionReturns float64, lesson string) error {
	row := s.db.QueryRowContext(ctx, `
SELECT symbol, trade_date, action, situation FROM sessions WHERE id = ?
`, sessionID)

	var symbol, tradeDate, action, situation string
	if err := row.Scan(&symbol, &tradeDate, &action, &situation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reflect: session %s not found", sessionID)
		}
		return fmt.Errorf("reflect: load session: %w", err)
	}

	if strings.TrimSpace(lesson) == "" {
		lesson = defaultLesson(action, positionReturns)
	}

	return s.AddCase(ctx, models.PastCase{
		Symbol:         symbol,
		TradeDate:      tradeDate,
		Situation:      situation,
		Recommendation: lesson,
		Returns:        positionReturns,
		RecordedAt:     time.Now(),
	})
}

// defaultLesson is the fallback when no reflection text was generated.
func defaultLesson(action string, returns float64) string {
	verdict := "worked out"
	if returns < 0 {
		verdict = "lost money"
	}
	return fmt.Sprintf("The %s decision %s (%.2f%% return). Weigh this outcome when a similar situation recurs.",
		action, verdict, returns)
}

// Retrieve returns up to k past cases, symbol matches first, most recent
// first. tradeDate is recorded for context but does not filter: lessons from
// any period remain relevant.
func (s *Store) Retrieve(ctx context.Context, symbol, tradeDate string, k int) ([]models.PastCase, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT symbol, trade_date, situation, recommendation, returns, recorded_at
FROM past_cases
ORDER BY (symbol = ?) DESC, recorded_at DESC
LIMIT ?
`, symbol, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve past cases: %w", err)
	}
	defer rows.Close()

	var cases []models.PastCase
	for rows.Next() {
		var c models.PastCase
		if err := rows.Scan(&c.Symbol, &c.TradeDate, &c.Situation, &c.Recommendation, &c.Returns, &c.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan past case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("retrieve past cases rows: %w", err)
	}
	return cases, nil
}

// ListSessions returns the newest sessions first, up to limit.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, symbol, trade_date, COALESCE(action, ''), status, created_at
FROM sessions
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Symbol, &e.TradeDate, &e.Action, &e.Status, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}
	return entries, nil
}
