// Package sqlite keeps contacts, the message log and daily counters in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Daily counter metrics written by the store.
const (
	MetricMessagesIn  = "messages_in"
	MetricMessagesOut = "messages_out"
	MetricNewContacts = "new_contacts"
)

const timeLayout = time.RFC3339Nano

const schema = `
	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		profile_pic TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL DEFAULT '',
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		UNIQUE (bot_id, sender_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		bot_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (bot_id, sender_id, created_at);

	CREATE TABLE IF NOT EXISTS daily_stats (
		bot_id TEXT NOT NULL,
		day TEXT NOT NULL,
		metric TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		UNIQUE (bot_id, day, metric)
	);`

// Store implements ports.ContactTracker and ports.MessageLogger over database/sql.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the database at path (":memory:" works) and migrates it.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes serialize anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertContact creates the contact on first sight, otherwise bumps last_seen and the
// message count. Name and profile picture are only overwritten by non-empty values.
func (s *Store) UpsertContact(ctx context.Context, c domain.Contact) error {
	now := s.now().UTC()
	for attempt := 0; attempt < 2; attempt++ {
		updated, err := s.touchContact(ctx, c, now)
		if err != nil {
			return &domain.AnalyticsError{Op: "upsert_contact", Err: err}
		}
		if updated {
			return nil
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO contacts (id, bot_id, sender_id, name, profile_pic, platform, first_seen, last_seen, message_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			uuid.New().String(), c.BotID, c.SenderID, c.Name, c.ProfilePic, c.Platform,
			now.Format(timeLayout), now.Format(timeLayout),
		)
		if err == nil {
			return s.IncrementDailyCounter(ctx, c.BotID, MetricNewContacts)
		}
		if !isUniqueViolation(err) {
			return &domain.AnalyticsError{Op: "upsert_contact", Err: err}
		}
		// Lost the race against a concurrent insert; the update path wins now.
	}
	return &domain.AnalyticsError{Op: "upsert_contact", Err: errors.New("contact kept changing during upsert")}
}

func (s *Store) touchContact(ctx context.Context, c domain.Contact, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET
			last_seen = ?,
			message_count = message_count + 1,
			name = CASE WHEN ? <> '' THEN ? ELSE name END,
			profile_pic = CASE WHEN ? <> '' THEN ? ELSE profile_pic END
		WHERE bot_id = ? AND sender_id = ?`,
		now.Format(timeLayout), c.Name, c.Name, c.ProfilePic, c.ProfilePic, c.BotID, c.SenderID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Contact returns the stored contact of (botID, senderID).
func (s *Store) Contact(ctx context.Context, botID, senderID string) (*domain.Contact, error) {
	var (
		c                   domain.Contact
		firstSeen, lastSeen string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, bot_id, sender_id, name, profile_pic, platform, first_seen, last_seen, message_count
		FROM contacts WHERE bot_id = ? AND sender_id = ?`, botID, senderID,
	).Scan(&c.ID, &c.BotID, &c.SenderID, &c.Name, &c.ProfilePic, &c.Platform, &firstSeen, &lastSeen, &c.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact %s/%s: %w", botID, senderID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	c.FirstSeen, _ = time.Parse(timeLayout, firstSeen)
	c.LastSeen, _ = time.Parse(timeLayout, lastSeen)
	return &c, nil
}

// LogMessage appends to the message log and bumps the daily in/out counter.
func (s *Store) LogMessage(ctx context.Context, botID, senderID, content string, direction domain.Direction) error {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, bot_id, sender_id, direction, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), botID, senderID, string(direction), content, now.Format(timeLayout),
	)
	if err != nil {
		return &domain.AnalyticsError{Op: "log_message", Err: err}
	}

	metric := MetricMessagesIn
	if direction == domain.DirectionOutbound {
		metric = MetricMessagesOut
	}
	return s.IncrementDailyCounter(ctx, botID, metric)
}

// Message is one row of the message log.
type Message struct {
	ID        string
	BotID     string
	SenderID  string
	Direction domain.Direction
	Content   string
	CreatedAt time.Time
}

// Messages returns the log of one conversation, oldest first.
func (s *Store) Messages(ctx context.Context, botID, senderID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, bot_id, sender_id, direction, content, created_at
		FROM messages WHERE bot_id = ? AND sender_id = ?
		ORDER BY created_at, id`, botID, senderID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m         Message
			direction string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.BotID, &m.SenderID, &direction, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Direction = domain.Direction(direction)
		m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// IncrementDailyCounter adds one to today's metric for botID. The row is created on
// first use; a concurrent creator is resolved by retrying the increment.
func (s *Store) IncrementDailyCounter(ctx context.Context, botID, metric string) error {
	day := s.now().UTC().Format(time.DateOnly)
	for attempt := 0; attempt < 2; attempt++ {
		res, err := s.db.ExecContext(ctx,
			`UPDATE daily_stats SET count = count + 1 WHERE bot_id = ? AND day = ? AND metric = ?`,
			botID, day, metric)
		if err != nil {
			return &domain.AnalyticsError{Op: "increment_counter", Err: err}
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO daily_stats (bot_id, day, metric, count) VALUES (?, ?, ?, 1)`,
			botID, day, metric)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return &domain.AnalyticsError{Op: "increment_counter", Err: err}
		}
	}
	return &domain.AnalyticsError{Op: "increment_counter", Err: errors.New("counter row kept conflicting")}
}

// DailyStats returns the counters of botID for day (YYYY-MM-DD), keyed by metric.
func (s *Store) DailyStats(ctx context.Context, botID, day string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT metric, count FROM daily_stats WHERE bot_id = ? AND day = ?`, botID, day)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var (
			metric string
			count  int
		)
		if err := rows.Scan(&metric, &count); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		stats[metric] = count
	}
	return stats, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
