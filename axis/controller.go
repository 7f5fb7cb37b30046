package axis

import (
	"context"
	"errors"
	"fmt"

	"github.com/devadigapratham/printd/metrics"
	"github.com/hashicorp/go-hclog"
)

// Store persists axis settings
type Store interface {
	// Load returns the stored settings of an axis or ErrNotStored
	Load(ctx context.Context, id ID) (Settings, error)
	// Save durably stores the settings of an axis
	Save(ctx context.Context, id ID, settings Settings) error
}

// Config is the startup configuration of one axis
type Config struct {
	Defaults Settings
	// Travel is the usable length in millimeters, 0 for unbounded
	Travel float64
}

// Controller owns the x, y and z axes. It is shared by the gcode engine and
// the API and is the only place axis state is changed.
type Controller struct {
	axes      map[ID]*Axis
	store     Store
	logger    hclog.Logger
	metrics   *metrics.Metrics
	timeScale float64
}

// Option configures a Controller
type Option func(*Controller)

// WithStore sets the settings store
func WithStore(store Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithLogger sets the logger
func WithLogger(logger hclog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger.Named("axis")
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithTimeScale scales every motion and dwell wait. 1 is real time, 0 skips waiting.
func WithTimeScale(scale float64) Option {
	return func(c *Controller) {
		if scale >= 0 {
			c.timeScale = scale
		}
	}
}

// NewController creates the three axes. Each axis starts from its stored
// settings, or from the configured defaults when the store has none.
func NewController(ctx context.Context, configs map[ID]Config, opts ...Option) (*Controller, error) {
	c := &Controller{
		axes:      make(map[ID]*Axis, 3),
		logger:    hclog.NewNullLogger(),
		timeScale: 1,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, id := range IDs() {
		cfg, ok := configs[id]
		if !ok {
			return nil, fmt.Errorf("missing configuration for axis %s", id)
		}
		if err := cfg.Defaults.Validate(); err != nil {
			return nil, fmt.Errorf("default settings of axis %s: %w", id, err)
		}

		settings := cfg.Defaults
		if c.store != nil {
			stored, err := c.store.Load(ctx, id)
			switch {
			case err == nil:
				if verr := stored.Validate(); verr != nil {
					c.logger.Warn("ignoring invalid stored settings", "axis", id, "error", verr)
				} else {
					settings = stored
				}
			case errors.Is(err, ErrNotStored):
				c.logger.Debug("no stored settings, using defaults", "axis", id)
			default:
				return nil, fmt.Errorf("load settings of axis %s: %w", id, err)
			}
		}

		c.axes[id] = newAxis(id, settings, cfg.Travel)
		c.metrics.AxisPosition(string(id), 0)
	}

	return c, nil
}

func (c *Controller) axis(id ID) (*Axis, error) {
	a, ok := c.axes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return a, nil
}

// Position returns the current position of an axis
func (c *Controller) Position(id ID) (float64, error) {
	a, err := c.axis(id)
	if err != nil {
		return 0, err
	}
	return a.Position(), nil
}

// Positions returns the position of every axis
func (c *Controller) Positions() map[ID]float64 {
	positions := make(map[ID]float64, len(c.axes))
	for id, a := range c.axes {
		positions[id] = a.Position()
	}
	return positions
}

// Settings returns the current settings of an axis
func (c *Controller) Settings(id ID) (Settings, error) {
	a, err := c.axis(id)
	if err != nil {
		return Settings{}, err
	}
	return a.Settings(), nil
}

// UpdateSettings applies a partial update, persists the result and returns it.
// Either the whole update is applied and stored or nothing changes.
func (c *Controller) UpdateSettings(ctx context.Context, id ID, update Update) (Settings, error) {
	a, err := c.axis(id)
	if err != nil {
		return Settings{}, err
	}

	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	current := a.Settings()
	if update.Empty() {
		c.logger.Debug("empty settings update, saving current values", "axis", id)
	}
	merged, err := update.Apply(current)
	if err != nil {
		return current, err
	}
	if c.store != nil {
		if err := c.store.Save(ctx, id, merged); err != nil {
			return current, fmt.Errorf("save settings of axis %s: %w", id, err)
		}
	}
	a.setSettings(merged)

	c.metrics.SettingsUpdated(string(id))
	c.logger.Info("settings updated", "axis", id,
		"reference_speed", merged.ReferenceSpeed,
		"reference_accel_decel", merged.ReferenceAccelDecel,
		"reference_jerk", merged.ReferenceJerk)
	return merged, nil
}

// SyncSettings replaces the settings of an axis with a value persisted
// elsewhere, such as one committed by another cluster node. Nothing is saved.
func (c *Controller) SyncSettings(id ID, settings Settings) error {
	a, err := c.axis(id)
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if a.Settings() == settings {
		return nil
	}
	a.setSettings(settings)
	c.logger.Debug("settings synced", "axis", id,
		"reference_speed", settings.ReferenceSpeed,
		"reference_accel_decel", settings.ReferenceAccelDecel,
		"reference_jerk", settings.ReferenceJerk)
	return nil
}

// SetPosition records a position without moving, as used by G92 and homing.
func (c *Controller) SetPosition(id ID, position float64) error {
	a, err := c.axis(id)
	if err != nil {
		return err
	}
	if !finite(position) {
		return fmt.Errorf("%w: axis %s position %v is not finite", ErrOutOfBounds, id, position)
	}
	a.setPosition(position)
	c.metrics.AxisPosition(string(id), position)
	return nil
}
