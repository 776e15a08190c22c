// Package application provides the application layer orchestrating the
// monitor lifecycle, profile management, and command dispatch.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"pixelwarden-go/application/watch"
	"pixelwarden-go/core/command"
	"pixelwarden-go/core/event"
	"pixelwarden-go/core/eventbus"
	"pixelwarden-go/core/state"
	"pixelwarden-go/domain/rule"
)

// PositionPicker waits for a user click and returns its screen position.
type PositionPicker func(timeoutSeconds float64) (int, int, error)

// Coordinator wires profiles, the monitor, and persistence behind a single
// command surface for the presentation layer.
type Coordinator struct {
	registry   *rule.Registry
	repository rule.Repository // nil when persistence is unavailable

	evaluator   watch.ConditionEvaluator
	confirmer   watch.Confirmer
	clicker     watch.Clicker
	executorCfg *watch.ExecutorConfig
	picker      PositionPicker

	eventBus eventbus.EventBus
	logger   *slog.Logger

	mu            sync.Mutex
	monitor       *watch.Monitor // current run, nil when idle
	activeProfile *rule.Profile

	ctx    context.Context
	cancel context.CancelFunc
}

// CoordinatorConfig holds configuration for the Coordinator.
type CoordinatorConfig struct {
	Registry       *rule.Registry
	Repository     rule.Repository
	Evaluator      watch.ConditionEvaluator
	Confirmer      watch.Confirmer
	Clicker        watch.Clicker
	ExecutorConfig *watch.ExecutorConfig
	PositionPicker PositionPicker
	EventBus       eventbus.EventBus
	Logger         *slog.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		registry:    cfg.Registry,
		repository:  cfg.Repository,
		evaluator:   cfg.Evaluator,
		confirmer:   cfg.Confirmer,
		clicker:     cfg.Clicker,
		executorCfg: cfg.ExecutorConfig,
		picker:      cfg.PositionPicker,
		eventBus:    cfg.EventBus,
		logger:      cfg.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Stop shuts down the coordinator and any active monitor.
func (c *Coordinator) Stop() {
	c.cancel()

	c.mu.Lock()
	monitor := c.monitor
	c.monitor = nil
	c.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}

	c.logger.Info("Coordinator stopped")
}

// Dispatch sends a command to the appropriate handler.
func (c *Coordinator) Dispatch(cmd command.Command) error {
	c.logger.Debug("Dispatching command", "command", cmd.CommandName())

	switch cmd := cmd.(type) {
	case *command.StartMonitoring:
		return c.handleStartMonitoring(cmd)
	case *command.StopMonitoring:
		return c.handleStopMonitoring()
	case *command.SelectProfile:
		return c.handleSelectProfile(cmd)
	case *command.SaveProfile:
		return c.handleSaveProfile(cmd)
	case *command.ReloadProfiles:
		return c.handleReloadProfiles()
	case *command.PickPosition:
		return c.handlePickPosition(cmd)
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
}

// MonitorState returns the current monitor state, Idle when no run exists.
func (c *Coordinator) MonitorState() state.MonitorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitor == nil {
		return state.StateIdle
	}
	return c.monitor.State()
}

// ActiveProfile returns the currently selected profile.
func (c *Coordinator) ActiveProfile() *rule.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeProfile == nil {
		return c.registry.First()
	}
	return c.activeProfile
}

// ProfileNames returns all known profile names in registration order.
func (c *Coordinator) ProfileNames() []string {
	return c.registry.List()
}

func (c *Coordinator) handleStartMonitoring(cmd *command.StartMonitoring) error {
	profile, err := c.resolveProfile(cmd.ProfileName())
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.monitor != nil && c.monitor.State().IsActive() {
		return fmt.Errorf("monitoring is already active")
	}

	pipeline := watch.NewPipeline(c.confirmer, c.logger)
	executor := watch.NewExecutor(c.clicker, c.executorCfg, c.logger)
	monitor := watch.NewMonitor(c.evaluator, pipeline, executor, c.eventBus, c.logger)

	if err := monitor.Start(profile); err != nil {
		return err
	}

	c.monitor = monitor
	c.activeProfile = profile
	return nil
}

func (c *Coordinator) handleStopMonitoring() error {
	c.mu.Lock()
	monitor := c.monitor
	c.monitor = nil
	c.mu.Unlock()

	if monitor == nil {
		return nil
	}
	monitor.Stop()
	return nil
}

func (c *Coordinator) handleSelectProfile(cmd *command.SelectProfile) error {
	profile := c.registry.Get(cmd.ProfileName())
	if profile == nil {
		return fmt.Errorf("profile %q not found", cmd.ProfileName())
	}

	c.mu.Lock()
	c.activeProfile = profile
	monitor := c.monitor
	c.mu.Unlock()

	// A running monitor picks up the new profile at its next tick
	if monitor != nil && monitor.State().IsActive() {
		if err := monitor.UpdateProfile(profile); err != nil {
			return err
		}
	}

	c.logger.Info("Profile selected", "profile", profile.Name)
	c.eventBus.Publish(event.NewProfileLoaded(profile.Name, len(profile.Rules)))
	return nil
}

func (c *Coordinator) handleSaveProfile(cmd *command.SaveProfile) error {
	if c.repository == nil {
		return fmt.Errorf("profile persistence is not available")
	}

	profile := c.registry.Get(cmd.ProfileName())
	if profile == nil {
		return fmt.Errorf("profile %q not found", cmd.ProfileName())
	}

	if err := c.repository.Upsert(c.ctx, profile); err != nil {
		return err
	}

	c.eventBus.Publish(event.NewProfileSaved(profile.Name))
	return nil
}

func (c *Coordinator) handleReloadProfiles() error {
	if c.repository == nil {
		return fmt.Errorf("profile persistence is not available")
	}

	profiles, err := c.repository.FindAll(c.ctx)
	if err != nil {
		return err
	}

	for _, p := range profiles {
		c.registry.Register(p)
		c.eventBus.Publish(event.NewProfileLoaded(p.Name, len(p.Rules)))
	}

	c.logger.Info("Profiles reloaded", "count", len(profiles))
	return nil
}

func (c *Coordinator) handlePickPosition(cmd *command.PickPosition) error {
	if c.picker == nil {
		return fmt.Errorf("position picking is not available")
	}

	// Picking blocks on user input; run it off the dispatch path
	go func() {
		x, y, err := c.picker(float64(cmd.TimeoutSeconds))
		if err != nil {
			c.logger.Warn("Position pick failed", "error", err)
			c.eventBus.Publish(event.NewMonitorError("position pick failed", err))
			return
		}
		c.eventBus.Publish(event.NewPositionPicked(x, y))
	}()
	return nil
}

// resolveProfile returns the named profile, falling back to the selected
// then the first registered one when the name is empty.
func (c *Coordinator) resolveProfile(name string) (*rule.Profile, error) {
	if name != "" {
		p := c.registry.Get(name)
		if p == nil {
			return nil, fmt.Errorf("profile %q not found", name)
		}
		return p, nil
	}

	c.mu.Lock()
	active := c.activeProfile
	c.mu.Unlock()
	if active != nil {
		return active, nil
	}

	if p := c.registry.First(); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("no profiles are configured")
}
