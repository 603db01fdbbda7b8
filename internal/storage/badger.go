package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend keeps records in an embedded badger database keyed "<kind>/<id>"
type BadgerBackend struct {
	db *badger.DB
}

func NewBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func badgerKey(kind Kind, id string) []byte {
	return []byte(string(kind) + "/" + id)
}

func (b *BadgerBackend) Read(_ context.Context, kind Kind, id string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(kind, id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *BadgerBackend) Write(_ context.Context, kind Kind, id string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(kind, id), data)
	})
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
