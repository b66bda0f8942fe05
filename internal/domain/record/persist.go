package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/fhk/fhk/internal/platform/storage"
)

// Save writes the current snapshot to the device store. The snapshot is
// taken synchronously before the first write, so mutations issued while the
// write is in flight do not leak into it.
func (s *Store) Save(ctx context.Context, dev storage.Store) error {
	snap := s.Snapshot()
	if err := storage.PutJSON(ctx, dev, storage.KeyPatients, snap.Patients); err != nil {
		return fmt.Errorf("save patients: %w", err)
	}
	if err := storage.PutJSON(ctx, dev, storage.KeyDoctors, snap.Doctors); err != nil {
		return fmt.Errorf("save doctors: %w", err)
	}
	return nil
}

// Load replaces the store contents with the persisted state. A device store
// that has never been saved to loads as empty; that is not an error.
func (s *Store) Load(ctx context.Context, dev storage.Store) error {
	var snap Snapshot
	if err := storage.GetJSON(ctx, dev, storage.KeyPatients, &snap.Patients); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("load patients: %w", err)
	}
	if err := storage.GetJSON(ctx, dev, storage.KeyDoctors, &snap.Doctors); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("load doctors: %w", err)
	}
	if _, err := s.ApplySnapshot(snap, MergeReplace); err != nil {
		return err
	}
	return nil
}
