// Package storage keeps a local history of benchmark sessions so past runs
// can be listed and compared without re-parsing CSV files.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"sqlbench/internal/report"
)

const (
	BucketSessions = "sessions"
)

// HistoryItem is one completed benchmark session.
type HistoryItem struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Query      string           `json:"query"`
	Runs       int              `json:"runs"`
	Concurrent bool             `json:"concurrent"`
	MaxWorkers int              `json:"max_workers"`
	OutputFile string           `json:"output_file"`
	Targets    []report.Summary `json:"targets"`
}

type Store struct {
	db *bbolt.DB
}

// NewStore opens (creating if needed) the history database under
// ~/.sqlbench/history.db.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(home, ".sqlbench")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return Open(filepath.Join(dir, "history.db"))
}

// Open opens a history database at an explicit path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketSessions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		// Key on timestamp so a cursor walk yields chronological order.
		key := []byte(item.Timestamp.UTC().Format(time.RFC3339Nano) + "/" + item.ID)
		return b.Put(key, data)
	})
}

// List returns sessions newest-first.
func (s *Store) List() []HistoryItem {
	var items []HistoryItem

	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
		}
		return nil
	})

	return items
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var found *HistoryItem
	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSessions))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err != nil {
				continue
			}
			if item.ID == id {
				found = &item
				return nil
			}
		}
		return nil
	})
	if found == nil {
		return nil, fmt.Errorf("session %s not found", id)
	}
	return found, nil
}
