// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Key prefixes for BadgerDB storage. Candidates are keyed by domain so
// a fetch is a single prefix scan.
const (
	candidateKeyPrefix = "candidate:"
	prefModelKeyPrefix = "prefmodel:"
)

// BadgerStore is the persistent repository implementation over an
// embedded BadgerDB. It carries both the candidate pool and the
// per-user preference models.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// OpenBadger opens (creating if needed) a BadgerDB at path and wraps it
// in a store. Badger's own chatty logger is disabled; operational
// logging goes through the given zerolog logger.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenBadger(path string, logger zerolog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return NewBadgerStore(db, logger), nil
}

// NewBadgerStore wraps an already-open BadgerDB.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "badger-store").Logger(),
	}
}

// Close flushes and closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// PutCandidate inserts or replaces a candidate. Task candidates get
// their derived schedule attributes recomputed before the write.
func (s *BadgerStore) PutCandidate(_ context.Context, cand recommend.Candidate) error {
	if cand.ID == "" {
		return fmt.Errorf("candidate id is required")
	}
	deriveTaskAttributes(&cand)

	data, err := json.Marshal(cand)
	if err != nil {
		return fmt.Errorf("marshal candidate: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(candidateKey(cand.Domain, cand.ID), data)
	})
}

// DeleteCandidate removes a candidate from a domain pool. Unknown IDs
// are a no-op.
func (s *BadgerStore) DeleteCandidate(_ context.Context, domain recommend.Domain, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(candidateKey(domain, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// FetchCandidates scans the domain's key prefix and returns matching
// candidates sorted by ID.
func (s *BadgerStore) FetchCandidates(_ context.Context, domain recommend.Domain, filter recommend.Filter) ([]recommend.Candidate, error) {
	var out []recommend.Candidate

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(candidateKeyPrefix + string(domain) + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var cand recommend.Candidate
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &cand)
			})
			if err != nil {
				return fmt.Errorf("unmarshal candidate %s: %w", it.Item().Key(), err)
			}
			if matchesFilter(cand, filter) {
				out = append(out, cand)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys sort lexicographically, so iteration order is already by ID;
	// the explicit sort documents the contract.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.MaxResults > 0 && len(out) > filter.MaxResults {
		out = out[:filter.MaxResults]
	}
	return out, nil
}

// PersistCandidateMutation writes back a candidate's learned fields by
// read-modify-write inside one transaction.
func (s *BadgerStore) PersistCandidateMutation(_ context.Context, cand recommend.Candidate) error {
	key := candidateKey(cand.Domain, cand.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("candidate %s: %w", cand.ID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get candidate: %w", err)
		}

		var stored recommend.Candidate
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return fmt.Errorf("unmarshal candidate: %w", err)
		}

		applyMutation(&stored, cand)
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("marshal candidate: %w", err)
		}
		return txn.Set(key, data)
	})
}

// LoadPreferenceModel returns the user's model, or nil for unknown
// users.
func (s *BadgerStore) LoadPreferenceModel(_ context.Context, userID string) (*recommend.PreferenceModel, error) {
	var model recommend.PreferenceModel

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefModelKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get preference model: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &model)
		})
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// SavePreferenceModel writes the user's model back.
func (s *BadgerStore) SavePreferenceModel(_ context.Context, userID string, model *recommend.PreferenceModel) error {
	if model == nil {
		return fmt.Errorf("nil preference model")
	}

	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshal preference model: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefModelKeyPrefix+userID), data)
	})
}

// candidateKey builds the storage key for a candidate. IDs containing
// the separator are tolerated because the ID is the final segment.
func candidateKey(domain recommend.Domain, id string) []byte {
	var b strings.Builder
	b.WriteString(candidateKeyPrefix)
	b.WriteString(string(domain))
	b.WriteString(":")
	b.WriteString(id)
	return []byte(b.String())
}
