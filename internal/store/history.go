package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// HistoryKey is the well-known key of the completed run list.
const HistoryKey = "runs"

// ErrRunNotFound is returned when a run doesn't exist
var ErrRunNotFound = errors.New("run not found")

// HistoryStore keeps completed runs, newest first.
type HistoryStore struct {
	kv  KV
	log logrus.FieldLogger
	now func() time.Time
}

// NewHistoryStore creates a HistoryStore on kv.
func NewHistoryStore(kv KV, log logrus.FieldLogger) *HistoryStore {
	return &HistoryStore{kv: kv, log: log, now: time.Now}
}

// Append stores run as the newest entry. Stored entries are kept as they
// are; a list that cannot be parsed is left untouched and reported.
func (h *HistoryStore) Append(ctx context.Context, run Run) error {
	raw, found, err := h.kv.Get(ctx, HistoryKey)
	if err != nil {
		return fmt.Errorf("reading run history: %w", err)
	}
	if !found {
		raw = ""
	}

	updated, err := PrependRun(raw, run)
	if err != nil {
		return fmt.Errorf("appending run: %w", err)
	}
	if err := h.kv.Set(ctx, HistoryKey, updated); err != nil {
		return fmt.Errorf("writing run history: %w", err)
	}
	return nil
}

// All returns every stored run, newest first. An unreadable list is logged
// and reported as empty.
func (h *HistoryStore) All(ctx context.Context) ([]Run, error) {
	raw, found, err := h.kv.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("reading run history: %w", err)
	}
	if !found {
		return []Run{}, nil
	}

	runs, skipped, err := DecodeRuns(raw, h.now())
	if err != nil {
		h.log.WithError(err).Warn("ignoring unreadable run history")
		return []Run{}, nil
	}
	if skipped > 0 {
		h.log.WithField("skipped", skipped).Warn("dropped unreadable runs from history")
	}
	return runs, nil
}

// Last returns the newest run. ok is false when the history is empty.
func (h *HistoryStore) Last(ctx context.Context) (run Run, ok bool, err error) {
	runs, err := h.All(ctx)
	if err != nil || len(runs) == 0 {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

// Get returns the run with the given id.
func (h *HistoryStore) Get(ctx context.Context, id string) (Run, error) {
	runs, err := h.All(ctx)
	if err != nil {
		return Run{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return Run{}, ErrRunNotFound
}
