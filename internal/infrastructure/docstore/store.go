package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"cultura/internal/domain/event"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

// Store implements the raw-record and outcome collections on top of Backend.
type Store struct {
	backend *Backend
}

var _ ports.DocumentStore = (*Store)(nil)

func NewStore(backend *Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) InsertRaw(ctx context.Context, rec event.RawRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, "encode raw record")
	}

	return s.backend.update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{rawKey(rec.ID), rawHashKey(rec.Hash)} {
			exists, err := keyExists(txn, key)
			if err != nil {
				return err
			}
			if exists {
				return ports.ErrRawDuplicate
			}
		}
		if err := txn.Set(rawKey(rec.ID), value); err != nil {
			return errs.Wrap(err, "put raw record")
		}
		if err := txn.Set(rawHashKey(rec.Hash), []byte(rec.ID)); err != nil {
			return errs.Wrap(err, "put raw hash index")
		}
		return nil
	})
}

func (s *Store) GetRaw(ctx context.Context, id string) (event.RawRecord, error) {
	if err := checkContext(ctx); err != nil {
		return event.RawRecord{}, err
	}

	var rec event.RawRecord
	err := s.backend.view(func(txn *badger.Txn) error {
		item, err := txn.Get(rawKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ports.ErrRawNotFound
			}
			return errs.Wrap(err, "get raw record")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return event.RawRecord{}, err
	}
	return rec, nil
}

func (s *Store) ListRaw(ctx context.Context, limit int) ([]event.RawRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	records := make([]event.RawRecord, 0)
	err := s.scan(rawPrefix, func(val []byte) (bool, error) {
		var rec event.RawRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return false, errs.Wrap(err, "decode raw record")
		}
		records = append(records, rec)
		return limit <= 0 || len(records) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListPendingRaw walks raw records in key order and returns the ones without an
// outcome, stopping after limit of them (limit <= 0 means all). enriched counts
// the records passed over because they already have an outcome.
func (s *Store) ListPendingRaw(ctx context.Context, limit int) (pending []event.RawRecord, enriched int, err error) {
	if err := checkContext(ctx); err != nil {
		return nil, 0, err
	}

	pending = make([]event.RawRecord, 0)
	err = s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(rawPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			id := strings.TrimPrefix(string(item.Key()), rawPrefix)
			done, err := keyExists(txn, outcomeKey(id))
			if err != nil {
				return err
			}
			if done {
				enriched++
				continue
			}

			var rec event.RawRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return errs.Wrapf(err, "decode raw record %s", id)
			}
			pending = append(pending, rec)
			if limit > 0 && len(pending) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, errs.Wrap(err, "list pending raw records")
	}
	return pending, enriched, nil
}

func (s *Store) CountRaw(ctx context.Context) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(rawPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(err, "count raw records")
	}
	return count, nil
}

func (s *Store) GetOutcome(ctx context.Context, rawID string) (event.Outcome, bool, error) {
	if err := checkContext(ctx); err != nil {
		return event.Outcome{}, false, err
	}

	var outcome event.Outcome
	found := false
	err := s.backend.view(func(txn *badger.Txn) error {
		item, err := txn.Get(outcomeKey(rawID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return errs.Wrap(err, "get outcome")
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &outcome)
		})
	})
	if err != nil {
		return event.Outcome{}, false, err
	}
	return outcome, found, nil
}

func (s *Store) InsertOutcome(ctx context.Context, outcome event.Outcome) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(outcome.RawID) == "" {
		return errors.New("outcome raw_id is required")
	}

	value, err := json.Marshal(outcome)
	if err != nil {
		return errs.Wrap(err, "encode outcome")
	}

	return s.backend.update(func(txn *badger.Txn) error {
		exists, err := keyExists(txn, outcomeKey(outcome.RawID))
		if err != nil {
			return err
		}
		if exists {
			return ports.ErrOutcomeExists
		}
		if err := txn.Set(outcomeKey(outcome.RawID), value); err != nil {
			return errs.Wrap(err, "put outcome")
		}
		return nil
	})
}

func (s *Store) CountOutcomes(ctx context.Context, status event.Status) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	count := 0
	err := s.scan(outcomePrefix, func(val []byte) (bool, error) {
		if status == "" {
			count++
			return true, nil
		}
		var head struct {
			Status event.Status `json:"status"`
		}
		if err := json.Unmarshal(val, &head); err != nil {
			return false, errs.Wrap(err, "decode outcome status")
		}
		if head.Status == status {
			count++
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) ListOutcomes(ctx context.Context, status event.Status, limit int) ([]event.Outcome, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	outcomes := make([]event.Outcome, 0)
	err := s.scan(outcomePrefix, func(val []byte) (bool, error) {
		var outcome event.Outcome
		if err := json.Unmarshal(val, &outcome); err != nil {
			return false, errs.Wrap(err, "decode outcome")
		}
		if status != "" && outcome.Status != status {
			return true, nil
		}
		outcomes = append(outcomes, outcome)
		return limit <= 0 || len(outcomes) < limit, nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

// scan walks every value under prefix until fn returns false or an error.
func (s *Store) scan(prefix string, fn func(val []byte) (bool, error)) error {
	return s.backend.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var more bool
			err := iter.Item().Value(func(val []byte) error {
				var err error
				more, err = fn(val)
				return err
			})
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return nil
	})
}

func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, errs.Wrapf(err, "lookup key %q", string(key))
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}
