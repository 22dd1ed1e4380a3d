package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ActiveRunKey is the well-known key of the active run record.
const ActiveRunKey = "activeRunState"

// RunStateStore persists the single ActiveRunState record.
type RunStateStore struct {
	kv  KV
	log logrus.FieldLogger
	now func() time.Time
}

// NewRunStateStore creates a RunStateStore on kv.
func NewRunStateStore(kv KV, log logrus.FieldLogger) *RunStateStore {
	return &RunStateStore{kv: kv, log: log, now: time.Now}
}

// Get returns the stored state. ok is false when no run is stored or the
// stored record cannot be interpreted; the latter is logged and otherwise
// treated as absent.
func (s *RunStateStore) Get(ctx context.Context) (st *ActiveRunState, ok bool, err error) {
	raw, found, err := s.kv.Get(ctx, ActiveRunKey)
	if err != nil {
		return nil, false, fmt.Errorf("reading active run: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	st, err = DecodeActiveRunState(raw, s.now())
	if err != nil {
		s.log.WithError(err).Warn("discarding unreadable active run record")
		return nil, false, nil
	}
	return st, true, nil
}

// Set overwrites the stored state. Callers read-modify-write.
func (s *RunStateStore) Set(ctx context.Context, st *ActiveRunState) error {
	raw, err := EncodeActiveRunState(st)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, ActiveRunKey, raw); err != nil {
		return fmt.Errorf("writing active run: %w", err)
	}
	return nil
}

// Clear removes the stored state.
func (s *RunStateStore) Clear(ctx context.Context) error {
	if err := s.kv.Remove(ctx, ActiveRunKey); err != nil {
		return fmt.Errorf("clearing active run: %w", err)
	}
	return nil
}
