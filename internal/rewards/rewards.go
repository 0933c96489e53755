package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"respawnbradley.gg/internal/persistence/sqlitedb"
	"respawnbradley.gg/internal/plugins"
)

var ErrInsufficientPoints = errors.New("insufficient points")

// Reasons recorded in the transaction history.
const (
	ReasonTake  = "take"
	ReasonAdd   = "add"
	ReasonAdmin = "admin"
)

// Store is the reward points plugin: one balance per player plus an
// append-only transaction history.
type Store struct {
	db  *sql.DB
	log *log.Logger
	now func() time.Time
}

type Tx struct {
	Seq      int64  `json:"seq"`
	PlayerID string `json:"player_id"`
	Delta    int64  `json:"delta"`
	Balance  int64  `json:"balance"`
	Reason   string `json:"reason"`
	At       string `json:"at"`
}

func Open(db *sql.DB, logger *log.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("rewards: nil db")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := sqlitedb.Exec(db, schema); err != nil {
		return nil, fmt.Errorf("rewards schema: %w", err)
	}
	return &Store{db: db, log: logger, now: time.Now}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS reward_balances (
		player_id TEXT PRIMARY KEY,
		points INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS reward_transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		reason TEXT NOT NULL,
		at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reward_tx_player ON reward_transactions(player_id, seq);`,
}

func (s *Store) Info() plugins.Info {
	return plugins.Info{
		Name:        plugins.DefaultLedgerPlugin,
		Author:      "respawnbradley",
		Version:     "1.0.0",
		Description: "Reward points stored in sqlite",
	}
}

// Debit takes points; it answers false on insufficient balance or a storage
// error.
func (s *Store) Debit(playerID string, amount int) bool {
	if err := s.TakePoints(context.Background(), playerID, int64(amount)); err != nil {
		if !errors.Is(err, ErrInsufficientPoints) {
			s.log.Printf("rewards: take %d from %s: %v", amount, playerID, err)
		}
		return false
	}
	return true
}

func (s *Store) Credit(playerID string, amount int) bool {
	if err := s.AddPoints(context.Background(), playerID, int64(amount)); err != nil {
		s.log.Printf("rewards: add %d to %s: %v", amount, playerID, err)
		return false
	}
	return true
}

func (s *Store) TakePoints(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("take: negative amount %d", amount)
	}
	return s.apply(ctx, playerID, -amount, ReasonTake, true)
}

func (s *Store) AddPoints(ctx context.Context, playerID string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("add: negative amount %d", amount)
	}
	return s.apply(ctx, playerID, amount, ReasonAdd, false)
}

// Set overwrites a balance and records the difference as an admin change.
func (s *Store) Set(ctx context.Context, playerID string, points int64) error {
	if points < 0 {
		return fmt.Errorf("set: negative balance %d", points)
	}
	cur, err := s.Balance(ctx, playerID)
	if err != nil {
		return err
	}
	return s.apply(ctx, playerID, points-cur, ReasonAdmin, false)
}

func (s *Store) apply(ctx context.Context, playerID string, delta int64, reason string, mustCover bool) error {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return fmt.Errorf("empty player id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var cur int64
	err = tx.QueryRowContext(ctx, `SELECT points FROM reward_balances WHERE player_id=?`, playerID).Scan(&cur)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	next := cur + delta
	if mustCover && next < 0 {
		return ErrInsufficientPoints
	}
	at := s.now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reward_balances(player_id, points, updated_at) VALUES(?,?,?)
		 ON CONFLICT(player_id) DO UPDATE SET points=excluded.points, updated_at=excluded.updated_at`,
		playerID, next, at,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reward_transactions(player_id, delta, balance, reason, at) VALUES(?,?,?,?,?)`,
		playerID, delta, next, reason, at,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Balance(ctx context.Context, playerID string) (int64, error) {
	var points int64
	err := s.db.QueryRowContext(ctx, `SELECT points FROM reward_balances WHERE player_id=?`, strings.TrimSpace(playerID)).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

// History returns the newest transactions first.
func (s *Store) History(ctx context.Context, playerID string, limit int) ([]Tx, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, player_id, delta, balance, reason, at FROM reward_transactions WHERE player_id=? ORDER BY seq DESC LIMIT ?`,
		strings.TrimSpace(playerID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tx
	for rows.Next() {
		var t Tx
		if err := rows.Scan(&t.Seq, &t.PlayerID, &t.Delta, &t.Balance, &t.Reason, &t.At); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
