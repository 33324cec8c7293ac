package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"InterviewBot/internal/session"
)

const (
	createSessionsTable = `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		resume_text TEXT NOT NULL,
		job_description_text TEXT NOT NULL,
		question_count INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		feedback TEXT,
		completed INTEGER NOT NULL DEFAULT 0
	);`

	createTurnsTable = `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		UNIQUE(session_id, seq),
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`
)

// SQLite stores sessions in a sessions table and their transcript in a turns table
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and ensures the schema
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}
	if _, err := db.Exec(createTurnsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create turns table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Create inserts the session row and its opening transcript in one transaction
func (s *SQLite) Create(ctx context.Context, sess *session.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, resume_text, job_description_text, question_count, status, started_at, ended_at, feedback, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ResumeText, sess.JobDescriptionText, sess.QuestionCount, string(sess.Status),
		sess.StartedAt, nullTime(sess), nullString(sess.Feedback), sess.Completed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if err := insertTurns(ctx, tx, sess.ID, 0, sess.Transcript); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get loads a session and its ordered transcript
func (s *SQLite) Get(ctx context.Context, id string) (*session.Session, error) {
	var (
		sess     session.Session
		status   string
		endedAt  sql.NullTime
		feedback sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, resume_text, job_description_text, question_count, status, started_at, ended_at, feedback, completed
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.ResumeText, &sess.JobDescriptionText, &sess.QuestionCount, &status,
		&sess.StartedAt, &endedAt, &feedback, &sess.Completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sess.Status = session.Status(status)
	sess.Feedback = feedback.String
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM turns WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	transcript := session.Transcript{}
	for rows.Next() {
		var turn session.Turn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = session.Role(role)
		transcript = append(transcript, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}
	sess.Transcript = transcript

	return &sess, nil
}

// Update applies the patch: new turns are appended after the highest stored
// sequence number and only the set fields are written.
func (s *SQLite) Update(ctx context.Context, id string, p session.Patch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT MAX(seq) + 1 FROM turns WHERE session_id = ?), 0)
		 FROM sessions WHERE id = ?`, id, id,
	).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to read session: %w", err)
	}

	if err := insertTurns(ctx, tx, id, next, p.AppendTurns); err != nil {
		return err
	}

	var sets []string
	var args []any
	if p.QuestionCount != nil {
		sets = append(sets, "question_count = ?")
		args = append(args, *p.QuestionCount)
	}
	if p.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Feedback != nil {
		sets = append(sets, "feedback = ?")
		args = append(args, *p.Feedback)
	}
	if p.EndedAt != nil {
		sets = append(sets, "ended_at = ?")
		args = append(args, *p.EndedAt)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *p.Completed)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE sessions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database handle
func (s *SQLite) Close() error {
	return s.db.Close()
}

func insertTurns(ctx context.Context, tx *sql.Tx, id string, start int, turns []session.Turn) error {
	for i, turn := range turns {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO turns (session_id, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?)",
			id, start+i, string(turn.Role), turn.Content, turn.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert turn %d: %w", start+i, err)
		}
	}
	return nil
}

func nullTime(sess *session.Session) sql.NullTime {
	if sess.EndedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *sess.EndedAt, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ session.Durable = (*SQLite)(nil)
