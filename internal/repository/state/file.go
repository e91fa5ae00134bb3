package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// DefaultFilePermissions restricts the state file to its owner.
const DefaultFilePermissions = 0o600

// FileRepository keeps the state in memory and rewrites a JSON file on every change.
// JSON is produced and consumed via protojson of a google.protobuf.Struct, the
// same document shape the gRPC API returns.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu serializes mutations with their file writes.
	mu sync.Mutex
	// cache holds the state between writes.
	cache *MemoryRepository
}

// ErrNotFound is returned by LoadSnapshot when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// NewFileRepository opens the state file at path. A missing file yields the
// default state; the file is created on the first change.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path:  filepath.Clean(path),
		cache: NewMemoryRepository(),
	}

	snapshot, err := LoadSnapshot(r.path)
	switch {
	case err == nil:
		r.cache.restore(snapshot)
	case errors.Is(err, ErrNotFound):
		// Keep default state.
	default:
		return nil, err
	}

	return r, nil
}

// Path returns the location of the state file.
func (r *FileRepository) Path() string {
	return r.path
}

// AlarmStatus returns the current alarm status.
func (r *FileRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	return r.cache.AlarmStatus(ctx)
}

// SetAlarmStatus stores the alarm status.
func (r *FileRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return r.mutate(func() error { return r.cache.SetAlarmStatus(ctx, status) })
}

// ArmingStatus returns the current arming status.
func (r *FileRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	return r.cache.ArmingStatus(ctx)
}

// SetArmingStatus stores the arming status.
func (r *FileRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return r.mutate(func() error { return r.cache.SetArmingStatus(ctx, status) })
}

// Sensors returns the known sensors.
func (r *FileRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	return r.cache.Sensors(ctx)
}

// AddSensor stores a sensor.
func (r *FileRepository) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	return r.mutate(func() error { return r.cache.AddSensor(ctx, sensor) })
}

// RemoveSensor deletes a sensor.
func (r *FileRepository) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	return r.mutate(func() error { return r.cache.RemoveSensor(ctx, sensor) })
}

// UpdateSensor stores the new activation of a sensor.
func (r *FileRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	return r.mutate(func() error { return r.cache.UpdateSensor(ctx, sensor) })
}

// mutate applies fn to the cache and writes the resulting state to disk.
// The cache is rolled back when the write fails.
func (r *FileRepository) mutate(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.cache.snapshot()

	if err := fn(); err != nil {
		return err
	}

	if err := SaveSnapshot(r.path, r.cache.snapshot()); err != nil {
		r.cache.restore(previous)

		return err
	}

	return nil
}

// LoadSnapshot reads a state file.
func LoadSnapshot(path string) (*wire.Snapshot, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	snapshot, err := wire.SnapshotFromStruct(&document)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return snapshot, nil
}

// SaveSnapshot writes a state file through a temporary file and a rename,
// so readers never observe a half written document.
func SaveSnapshot(path string, snapshot *wire.Snapshot) error {
	document := wire.SnapshotToStruct(snapshot)
	// The cat flag is transient and never persisted.
	delete(document.Fields, wire.FieldCatDetected)

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := path + ".tmp"
	if err = os.WriteFile(tmp, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
