package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Well-known device store keys.
const (
	KeyPatients      = "fhk_patients"
	KeyDoctors       = "fhk_doctors"
	KeyBackupHistory = "fhk_backup_history"
	keyDeviceID      = "fhk_device_id"
	keyDataVersion   = "fhk_data_version"
)

// EnsureDeviceID returns the opaque identifier of this device store,
// generating and persisting one on first use.
func EnsureDeviceID(ctx context.Context, s Store) (string, error) {
	value, err := s.Get(ctx, keyDeviceID)
	if err == nil {
		return string(value), nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return "", fmt.Errorf("load device id: %w", err)
	}
	id := uuid.New().String()
	if err := s.Put(ctx, keyDeviceID, []byte(id)); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	return id, nil
}

// DataVersion returns the logical data version, 0 if never written.
func DataVersion(ctx context.Context, s Store) (int, error) {
	value, err := s.Get(ctx, keyDataVersion)
	if errors.Is(err, ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load data version: %w", err)
	}
	n, err := strconv.Atoi(string(value))
	if err != nil {
		return 0, fmt.Errorf("parse data version: %w", err)
	}
	return n, nil
}

// BumpDataVersion increments and persists the logical data version,
// returning the new value.
func BumpDataVersion(ctx context.Context, s Store) (int, error) {
	n, err := DataVersion(ctx, s)
	if err != nil {
		return 0, err
	}
	n++
	if err := s.Put(ctx, keyDataVersion, []byte(strconv.Itoa(n))); err != nil {
		return 0, fmt.Errorf("persist data version: %w", err)
	}
	return n, nil
}
