package security

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// DefaultConfidenceThreshold is the minimal confidence, in percent,
// the image analyzer must report before an image counts as containing a cat.
const DefaultConfidenceThreshold float32 = 50.0

var (
	// ErrRepositoryRequired is returned when the engine is built without a repository.
	ErrRepositoryRequired = errors.New("repository is required")
	// ErrAnalyzerRequired is returned when the engine is built without an image analyzer.
	ErrAnalyzerRequired = errors.New("image analyzer is required")
	// ErrInvalidThreshold is returned for a confidence threshold outside (0, 100].
	ErrInvalidThreshold = errors.New("confidence threshold must be within (0, 100]")
	// ErrListenerNotComparable is returned for listeners that cannot be registered by identity.
	ErrListenerNotComparable = errors.New("status listener type is not comparable")
)

// Engine is the alarm decision engine.
type Engine struct {
	// repo holds sensors, arming status and alarm status.
	repo Repository
	// analyzer detects cats on camera images.
	analyzer ImageAnalyzer
	// listeners receive every notification.
	listeners *listenerRegistry
	// threshold is passed to the analyzer on every image.
	threshold float32

	// mu serializes every state transition.
	mu sync.Mutex
	// catDetected is the result of the last analyzed image.
	catDetected bool
	// initialListeners are collected by WithListeners and registered by NewEngine.
	initialListeners []StatusListener
}

// Option configures the engine.
type Option func(*Engine)

// WithConfidenceThreshold overrides DefaultConfidenceThreshold.
func WithConfidenceThreshold(percent float32) Option {
	return func(e *Engine) {
		e.threshold = percent
	}
}

// WithListeners registers listeners at construction time.
func WithListeners(listeners ...StatusListener) Option {
	return func(e *Engine) {
		e.initialListeners = append(e.initialListeners, listeners...)
	}
}

// NewEngine creates an engine on top of the given collaborators.
func NewEngine(repo Repository, analyzer ImageAnalyzer, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}

	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}

	e := &Engine{
		repo:      repo,
		analyzer:  analyzer,
		listeners: newListenerRegistry(),
		threshold: DefaultConfidenceThreshold,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.threshold <= 0 || e.threshold > 100 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, e.threshold)
	}

	for _, l := range e.initialListeners {
		if err := e.listeners.add(l); err != nil {
			return nil, err
		}
	}

	e.initialListeners = nil

	return e, nil
}

// AddStatusListener registers l. Adding the same listener twice keeps one registration.
// Listeners of a type that cannot be compared are rejected with ErrListenerNotComparable.
func (e *Engine) AddStatusListener(l StatusListener) error {
	return e.listeners.add(l)
}

// RemoveStatusListener unregisters l. Unknown listeners are ignored.
func (e *Engine) RemoveStatusListener(l StatusListener) {
	e.listeners.remove(l)
}

// ConfidenceThreshold returns the threshold passed to the image analyzer.
func (e *Engine) ConfidenceThreshold() float32 {
	return e.threshold
}

// SetArmingStatus changes the arming mode.
// Arming with a cat on camera in home mode raises the alarm, disarming clears it,
// and any armed mode resets every sensor to inactive.
func (e *Engine) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownArmingStatus, status)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.catDetected && status == domain.ArmedHome {
		if err := e.setAlarmStatus(ctx, domain.Alarm); err != nil {
			return err
		}
	}

	if status == domain.Disarmed {
		if err := e.setAlarmStatus(ctx, domain.NoAlarm); err != nil {
			return err
		}
	} else {
		sensors, err := e.repo.Sensors(ctx)
		if err != nil {
			return fmt.Errorf("list sensors: %w", err)
		}

		// Resets are evaluated against the mode being applied.
		for _, sensor := range domain.SortSensors(sensors) {
			change := domain.SensorChange{
				Sensor:   sensor,
				Previous: sensor.Active,
				Next:     false,
			}

			if err = e.applySensorChange(ctx, change, status, false); err != nil {
				return err
			}
		}
	}

	if err := e.repo.SetArmingStatus(ctx, status); err != nil {
		return fmt.Errorf("persist arming status: %w", err)
	}

	logger.InfoKV(ctx, "Arming status changed", "arming_status", status.String())

	e.listeners.sensorStatusChanged(ctx)

	return nil
}

// ProcessImage asks the analyzer whether image contains a cat and updates the alarm accordingly.
func (e *Engine) ProcessImage(ctx context.Context, image []byte) error {
	// The analyzer is stateless, so the (possibly slow) call happens outside the lock.
	detected, err := e.analyzer.ContainsTarget(ctx, image, e.threshold)
	if err != nil {
		return fmt.Errorf("analyze image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handleCatDetected(ctx, detected)
}

// ChangeSensorActivation sets the activation of sensor to active.
// The previous activation is the stored one when the repository knows the sensor,
// otherwise sensor.Active.
func (e *Engine) ChangeSensorActivation(ctx context.Context, sensor domain.Sensor, active bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("list sensors: %w", err)
	}

	previous := sensor.Active

	for _, stored := range sensors {
		if stored.Key() == sensor.Key() {
			previous = stored.Active

			break
		}
	}

	arming, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return fmt.Errorf("get arming status: %w", err)
	}

	change := domain.SensorChange{
		Sensor:   sensor,
		Previous: previous,
		Next:     active,
	}

	return e.applySensorChange(ctx, change, arming, false)
}

// ApplySensorChange applies an explicit activation edge.
// Callers that already flipped a sensor to inactive pass Previous true and Next false.
// Unlike ChangeSensorActivation it clears one step of an Alarm left over from a
// disarmed system when the sensor goes inactive.
func (e *Engine) ApplySensorChange(ctx context.Context, change domain.SensorChange) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	arming, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return fmt.Errorf("get arming status: %w", err)
	}

	return e.applySensorChange(ctx, change, arming, true)
}

// SetAlarmStatus persists status and notifies listeners.
func (e *Engine) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrUnknownAlarmStatus, status)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setAlarmStatus(ctx, status)
}

// AlarmStatus returns the stored alarm status.
// It panics when the repository reports a value outside the declared statuses.
func (e *Engine) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.currentAlarmStatus(ctx)
}

// ArmingStatus returns the stored arming status.
func (e *Engine) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return domain.ArmingStatusUnknown, fmt.Errorf("get arming status: %w", err)
	}

	return status, nil
}

// CatDetected returns the result of the last analyzed image.
func (e *Engine) CatDetected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.catDetected
}

// Sensors returns the known sensors ordered by identity.
func (e *Engine) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}

	return domain.SortSensors(sensors), nil
}

// AddSensor stores a new sensor.
func (e *Engine) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.AddSensor(ctx, sensor); err != nil {
		return fmt.Errorf("add sensor: %w", err)
	}

	return nil
}

// RemoveSensor deletes a sensor. Unknown sensors are ignored by the repository.
func (e *Engine) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.RemoveSensor(ctx, sensor); err != nil {
		return fmt.Errorf("remove sensor: %w", err)
	}

	return nil
}

// Status is a consistent view of the engine state.
type Status struct {
	AlarmStatus  domain.AlarmStatus
	ArmingStatus domain.ArmingStatus
	CatDetected  bool
	Sensors      []domain.Sensor
}

// Status reads every part of the state under one lock.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarm, err := e.currentAlarmStatus(ctx)
	if err != nil {
		return Status{}, err
	}

	arming, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("get arming status: %w", err)
	}

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("list sensors: %w", err)
	}

	return Status{
		AlarmStatus:  alarm,
		ArmingStatus: arming,
		CatDetected:  e.catDetected,
		Sensors:      domain.SortSensors(sensors),
	}, nil
}
