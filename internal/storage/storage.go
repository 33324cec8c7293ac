// Package storage provides the durable session backends.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"InterviewBot/internal/session"
)

const (
	SchemeSQLite = "sqlite://"
	SchemeBolt   = "bolt://"
)

var (
	// ErrNotFound is returned by Update for an unknown session id.
	ErrNotFound = errors.New("session not found in durable store")
	// ErrExists is returned by Create when the id is already taken.
	ErrExists = errors.New("session already exists in durable store")
)

// Open returns the durable backend named by dsn, e.g. "sqlite://data/interview.db"
// or "bolt://data/interview.bolt".
func Open(dsn string) (session.Durable, error) {
	switch {
	case strings.HasPrefix(dsn, SchemeSQLite):
		return NewSQLite(strings.TrimPrefix(dsn, SchemeSQLite))
	case strings.HasPrefix(dsn, SchemeBolt):
		return NewBolt(strings.TrimPrefix(dsn, SchemeBolt))
	default:
		return nil, fmt.Errorf("unsupported store dsn %q: want %s<path> or %s<path>", dsn, SchemeSQLite, SchemeBolt)
	}
}
