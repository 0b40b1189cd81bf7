// Package peerlog keeps an append-only record of every distinct remote
// address that ever connected. It is written best-effort and the chat core
// never reads it back.
package peerlog

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type Log struct {
	db     *badger.DB
	logger *slog.Logger
}

func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("opening peer log: %w", err)
	}
	return &Log{db: db, logger: logger}, nil
}

// Record stores addr with its first-seen time, once. Faults are logged and
// swallowed: a broken peer log must never affect a connection.
func (l *Log) Record(addr string) {
	err := l.db.Update(func(txn *badger.Txn) error {
		key := []byte(addr)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		l.logger.Warn("peer log write failed", "addr", addr, "error", err)
	}
}

// Known reports whether addr has ever been recorded. The chat core never
// calls this; it exists for operator tooling and tests.
func (l *Log) Known(addr string) bool {
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(addr))
		return err
	})
	return err == nil
}

func (l *Log) Close() error {
	return l.db.Close()
}
