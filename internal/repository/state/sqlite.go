package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // Registers the sqlite3 driver.

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/repository/state/migrations"
)

// SQLiteRepository stores the controller state in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo, err := NewSQLiteRepositoryWithDB(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

// NewSQLiteRepositoryWithDB wraps an existing connection and applies migrations.
func NewSQLiteRepositoryWithDB(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	if err := migrations.Run(ctx, db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the database connection.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

// AlarmStatus returns the current alarm status.
func (r *SQLiteRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	var raw string
	if err := r.db.QueryRowContext(ctx, "SELECT alarm_status FROM system_state WHERE id = 1").Scan(&raw); err != nil {
		return domain.AlarmStatusUnknown, fmt.Errorf("select alarm status: %w", err)
	}

	return domain.ParseAlarmStatus(raw)
}

// SetAlarmStatus stores the alarm status and appends it to the history.
func (r *SQLiteRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "UPDATE system_state SET alarm_status = ? WHERE id = 1", status.String()); err != nil {
		return fmt.Errorf("update alarm status: %w", err)
	}

	if _, err = tx.ExecContext(ctx, "INSERT INTO alarm_history (alarm_status) VALUES (?)", status.String()); err != nil {
		return fmt.Errorf("record alarm history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// ArmingStatus returns the current arming status.
func (r *SQLiteRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	var raw string
	if err := r.db.QueryRowContext(ctx, "SELECT arming_status FROM system_state WHERE id = 1").Scan(&raw); err != nil {
		return domain.ArmingStatusUnknown, fmt.Errorf("select arming status: %w", err)
	}

	return domain.ParseArmingStatus(raw)
}

// SetArmingStatus stores the arming status.
func (r *SQLiteRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE system_state SET arming_status = ? WHERE id = 1", status.String()); err != nil {
		return fmt.Errorf("update arming status: %w", err)
	}

	return nil
}

// Sensors returns the known sensors.
func (r *SQLiteRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, type, active FROM sensors ORDER BY name, type")
	if err != nil {
		return nil, fmt.Errorf("select sensors: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var sensors []domain.Sensor

	for rows.Next() {
		var (
			sensor  domain.Sensor
			rawType string
		)

		if err = rows.Scan(&sensor.Name, &rawType, &sensor.Active); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}

		if sensor.Type, err = domain.ParseSensorType(rawType); err != nil {
			return nil, err
		}

		sensors = append(sensors, sensor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensors: %w", err)
	}

	// Type names sort differently from their enum order.
	return domain.SortSensors(sensors), nil
}

// AddSensor stores a sensor, replacing one with the same identity.
func (r *SQLiteRepository) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	return r.upsertSensor(ctx, sensor)
}

// RemoveSensor deletes a sensor by identity.
func (r *SQLiteRepository) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sensors WHERE name = ? AND type = ?", sensor.Name, sensor.Type.String())
	if err != nil {
		return fmt.Errorf("delete sensor: %w", err)
	}

	return nil
}

// UpdateSensor stores the new activation of a sensor.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	return r.upsertSensor(ctx, sensor)
}

// AlarmHistory returns up to limit most recent alarm status writes, newest first.
func (r *SQLiteRepository) AlarmHistory(ctx context.Context, limit int) ([]domain.AlarmChange, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT alarm_status, changed_at FROM alarm_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select alarm history: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var history []domain.AlarmChange

	for rows.Next() {
		change, scanErr := scanAlarmChange(rows)
		if scanErr != nil {
			return nil, scanErr
		}

		history = append(history, change)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarm history: %w", err)
	}

	return history, nil
}

func scanAlarmChange(rows *sql.Rows) (domain.AlarmChange, error) {
	var rawStatus, rawTime string
	if err := rows.Scan(&rawStatus, &rawTime); err != nil {
		return domain.AlarmChange{}, fmt.Errorf("scan alarm history: %w", err)
	}

	status, err := domain.ParseAlarmStatus(rawStatus)
	if err != nil {
		return domain.AlarmChange{}, err
	}

	changedAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return domain.AlarmChange{}, fmt.Errorf("parse alarm history time: %w", err)
	}

	return domain.AlarmChange{Status: status, ChangedAt: changedAt}, nil
}

func (r *SQLiteRepository) upsertSensor(ctx context.Context, sensor domain.Sensor) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO sensors (name, type, active) VALUES (?, ?, ?)
		ON CONFLICT (name, type) DO UPDATE SET active = excluded.active`,
		sensor.Name, sensor.Type.String(), sensor.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert sensor: %w", err)
	}

	return nil
}
