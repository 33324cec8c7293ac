package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"InterviewBot/internal/session"
)

const sessionsBucket = "sessions"

// Bolt stores each session as one JSON document keyed by id
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens the bbolt file at path and ensures the sessions bucket exists
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s (is another instance using it?): %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sessions bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Create stores a new session, refusing to overwrite an existing id
func (b *Bolt) Create(ctx context.Context, sess *session.Session) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionsBucket))
		if bucket.Get([]byte(sess.ID)) != nil {
			return fmt.Errorf("session %s: %w", sess.ID, ErrExists)
		}

		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return bucket.Put([]byte(sess.ID), data)
	})
}

// Get returns (nil, nil) when the id is unknown
func (b *Bolt) Get(ctx context.Context, id string) (*session.Session, error) {
	var sess *session.Session

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(sessionsBucket)).Get([]byte(id))
		if data == nil {
			return nil
		}
		sess = &session.Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// Update reads, patches and rewrites the document inside one write transaction
func (b *Bolt) Update(ctx context.Context, id string, p session.Patch) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionsBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}

		var sess session.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}
		p.Apply(&sess)

		out, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}
		return bucket.Put([]byte(id), out)
	})
}

// Close closes the database file
func (b *Bolt) Close() error {
	return b.db.Close()
}

var _ session.Durable = (*Bolt)(nil)
