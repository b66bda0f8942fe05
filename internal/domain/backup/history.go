package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fhk/fhk/internal/platform/storage"
	"github.com/fhk/fhk/internal/platform/vault"
)

// HistoryEntry is one line of the persisted backup history: enough to show
// the user what exists without holding any ciphertext.
type HistoryEntry struct {
	ID                  string          `json:"id"`
	Timestamp           time.Time       `json:"timestamp"`
	Size                int             `json:"size"`
	ItemCount           vault.ItemCount `json:"itemCount"`
	EncryptionAlgorithm string          `json:"encryptionAlgorithm"`
	Checksum            string          `json:"checksum"`
	AutoBackup          bool            `json:"autoBackup"`
}

// History returns a copy of the history, newest first.
func (o *Orchestrator) History() []HistoryEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]HistoryEntry, len(o.history))
	copy(out, o.history)
	return out
}

// appendHistory prepends an entry for env and persists the bounded list.
// The list is newest-first; when full, the oldest entry falls off the end
// (FIFO eviction).
func (o *Orchestrator) appendHistory(ctx context.Context, env *vault.Envelope, isAuto bool) error {
	serialized, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("measure envelope: %w", err)
	}

	entry := HistoryEntry{
		ID:                  uuid.New().String(),
		Timestamp:           env.Metadata.CreatedAt,
		Size:                len(serialized),
		ItemCount:           env.Metadata.ItemCount,
		EncryptionAlgorithm: env.Metadata.EncryptionAlgorithm,
		Checksum:            env.Metadata.Checksum,
		AutoBackup:          isAuto,
	}

	o.mu.Lock()
	o.history = append([]HistoryEntry{entry}, o.history...)
	if len(o.history) > o.opts.HistoryCapacity {
		o.history = o.history[:o.opts.HistoryCapacity]
	}
	snapshot := make([]HistoryEntry, len(o.history))
	copy(snapshot, o.history)
	o.mu.Unlock()

	if err := storage.PutJSON(ctx, o.dev, storage.KeyBackupHistory, snapshot); err != nil {
		return fmt.Errorf("persist backup history: %w", err)
	}
	return nil
}

// loadHistory restores the persisted history list; an untouched device
// store loads as empty.
func (o *Orchestrator) loadHistory(ctx context.Context) error {
	var entries []HistoryEntry
	err := storage.GetJSON(ctx, o.dev, storage.KeyBackupHistory, &entries)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load backup history: %w", err)
	}
	if len(entries) > o.opts.HistoryCapacity {
		entries = entries[:o.opts.HistoryCapacity]
	}
	o.history = entries
	return nil
}
