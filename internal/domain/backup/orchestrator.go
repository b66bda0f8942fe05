// Package backup drives the backup lifecycle: envelope creation over a
// store snapshot, bounded history, file export/import, validation, and
// merge-strategy restoration.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fhk/fhk/internal/domain/record"
	"github.com/fhk/fhk/internal/platform/storage"
	"github.com/fhk/fhk/internal/platform/vault"
)

// State of the backup lifecycle. Operations pass through their states
// synchronously and end back at Idle; the machine exists to reject a second
// backup-affecting call while one is in flight.
type State string

const (
	StateIdle      State = "idle"
	StateCreating  State = "creating"
	StateCreated   State = "created"
	StateExporting State = "exporting"
	StateImporting State = "importing"
	StateValidated State = "validated"
	StateRestoring State = "restoring"
)

var (
	// ErrBusy rejects a backup-affecting call while another is running.
	// The caller is told, never queued.
	ErrBusy = errors.New("a backup operation is already in progress")

	// ErrMalformedFile means an imported file does not have the envelope
	// shape at all.
	ErrMalformedFile = errors.New("malformed backup file")
)

// DefaultHistoryCapacity bounds the backup history ring.
const DefaultHistoryCapacity = 10

// Options configures an Orchestrator.
type Options struct {
	DeviceID        string
	HistoryCapacity int  // 0 means DefaultHistoryCapacity
	Compress        bool // gzip payloads before sealing
	KDFIterations   int  // 0 means vault.DefaultIterations
}

// Orchestrator owns the backup state machine. It snapshots the entity
// store synchronously before any encryption or IO starts, so a backup
// never captures a state that shifts mid-operation.
type Orchestrator struct {
	mu    sync.Mutex
	state State

	store   *record.Store
	dev     storage.Store
	index   record.Indexer
	opts    Options
	history []HistoryEntry
	logger  zerolog.Logger

	now func() time.Time
}

// New builds an orchestrator and loads persisted history from the device
// store. index may be nil when no search index should be rebuilt after
// restores.
func New(ctx context.Context, store *record.Store, dev storage.Store, index record.Indexer, opts Options, logger zerolog.Logger) (*Orchestrator, error) {
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = DefaultHistoryCapacity
	}
	o := &Orchestrator{
		state:  StateIdle,
		store:  store,
		dev:    dev,
		index:  index,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
	if err := o.loadHistory(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// begin claims the state machine for one operation. It fails with ErrBusy
// when any other backup-affecting operation is running.
func (o *Orchestrator) begin(s State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return fmt.Errorf("%w (state: %s)", ErrBusy, o.state)
	}
	o.state = s
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Create snapshots the store, seals it into an envelope under key, and
// records a history entry. It does not write the snapshot durably; saving
// state is a separate, explicit step.
func (o *Orchestrator) Create(ctx context.Context, key []byte, kdf *vault.KDFParams, isAuto bool) (*vault.Envelope, error) {
	if err := o.begin(StateCreating); err != nil {
		return nil, err
	}
	defer o.setState(StateIdle)

	// Deep copy before the first suspension point.
	snap := o.store.Snapshot()

	dataVersion, err := storage.BumpDataVersion(ctx, o.dev)
	if err != nil {
		return nil, fmt.Errorf("bump data version: %w", err)
	}

	env, err := vault.Encrypt(snap, key, vault.Options{
		DeviceID:    o.opts.DeviceID,
		DataVersion: dataVersion,
		ItemCount: vault.ItemCount{
			Patients: len(snap.Patients),
			Doctors:  len(snap.Doctors),
		},
		Compress:      o.opts.Compress,
		KeyDerivation: kdf,
	})
	if err != nil {
		return nil, err
	}
	o.setState(StateCreated)

	if err := o.appendHistory(ctx, env, isAuto); err != nil {
		return nil, err
	}

	o.logger.Info().
		Bool("auto", isAuto).
		Int("patients", env.Metadata.ItemCount.Patients).
		Int("doctors", env.Metadata.ItemCount.Doctors).
		Msg("backup created")
	return env, nil
}

// CreateWithPassphrase derives a fresh per-backup salt and key from the
// passphrase, records the KDF parameters in the envelope, and creates the
// backup.
func (o *Orchestrator) CreateWithPassphrase(ctx context.Context, passphrase string, isAuto bool) (*vault.Envelope, error) {
	salt, err := vault.NewSalt()
	if err != nil {
		return nil, err
	}
	key := vault.DeriveKey(passphrase, salt, o.opts.KDFIterations)
	return o.Create(ctx, key, vault.NewKDFParams(salt, o.opts.KDFIterations), isAuto)
}

// ExportToFile serializes the envelope to a JSON file. An empty path uses
// the date-stamped default name in the working directory. Returns the path
// written.
func (o *Orchestrator) ExportToFile(env *vault.Envelope, path string) (string, error) {
	if err := o.begin(StateExporting); err != nil {
		return "", err
	}
	defer o.setState(StateIdle)

	if path == "" {
		path = DefaultFileName(o.now())
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize envelope: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	o.logger.Info().Str("path", path).Msg("backup exported")
	return path, nil
}

// DefaultFileName is the fhk_backup_<YYYY-MM-DD>.json convention.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("fhk_backup_%s.json", t.UTC().Format("2006-01-02"))
}

// ImportFromFile parses an exported backup. A file whose top-level shape is
// not an envelope (missing metadata, encryptedData or iv) fails with
// ErrMalformedFile; the ciphertext is not touched here.
func (o *Orchestrator) ImportFromFile(r io.Reader) (*vault.Envelope, error) {
	if err := o.begin(StateImporting); err != nil {
		return nil, err
	}
	defer o.setState(StateIdle)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup file: %w", err)
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	for _, field := range []string{"metadata", "encryptedData", "iv"} {
		if _, ok := shape[field]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedFile, field)
		}
	}

	var env vault.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return &env, nil
}

// Validate dry-runs the inbound pipeline: version check, decrypt, checksum.
// No store is mutated; the boolean feeds a pre-restore confirmation prompt.
func (o *Orchestrator) Validate(env *vault.Envelope, key []byte) bool {
	var snap record.Snapshot
	if err := vault.Decrypt(env, key, &snap); err != nil {
		o.logger.Warn().Err(err).Msg("backup validation failed")
		return false
	}
	return true
}

// Restore decrypts the envelope and applies it to the store under the given
// merge strategy. Decryption and validation complete before the store is
// touched, so any failure leaves it exactly as it was. The search index is
// rebuilt afterwards.
func (o *Orchestrator) Restore(ctx context.Context, env *vault.Envelope, key []byte, strategy record.MergeStrategy) (record.RestoreResult, error) {
	if err := o.begin(StateRestoring); err != nil {
		return record.RestoreResult{}, err
	}
	defer o.setState(StateIdle)

	if _, err := record.ParseMergeStrategy(string(strategy)); err != nil {
		return record.RestoreResult{}, err
	}

	var snap record.Snapshot
	if err := vault.Decrypt(env, key, &snap); err != nil {
		return record.RestoreResult{}, err
	}

	res, err := o.store.ApplySnapshot(snap, strategy)
	if err != nil {
		return record.RestoreResult{}, err
	}

	if o.index != nil {
		for _, p := range o.store.Patients() {
			o.index.IndexPatient(p)
		}
	}

	if err := o.store.Save(ctx, o.dev); err != nil {
		return res, fmt.Errorf("persist restored state: %w", err)
	}

	o.logger.Info().
		Str("strategy", string(strategy)).
		Int("patients_added", res.Patients.Added).
		Int("patients_updated", res.Patients.Updated).
		Int("doctors_added", res.Doctors.Added).
		Int("doctors_updated", res.Doctors.Updated).
		Msg("backup restored")
	return res, nil
}
