package rule

import (
	"fmt"
	"sync"
	"time"
)

// InterventionConfig controls the confirm/delay phase between a match and
// the click. Read-only while a monitoring cycle is active.
type InterventionConfig struct {
	// DelaySeconds is the countdown before the click fires, after any
	// popup decision. Zero means click immediately.
	DelaySeconds int
	// PopupEnabled shows a confirmation popup before the delay starts.
	PopupEnabled bool
	// AutoTimeoutSeconds resolves an unanswered popup as ProceedNow.
	AutoTimeoutSeconds int
}

// DefaultInterventionConfig returns the default intervention settings.
func DefaultInterventionConfig() InterventionConfig {
	return InterventionConfig{
		DelaySeconds:       0,
		PopupEnabled:       true,
		AutoTimeoutSeconds: 10,
	}
}

// Validate checks the intervention settings.
func (c InterventionConfig) Validate() error {
	if c.DelaySeconds < 0 {
		return fmt.Errorf("delay seconds must be >= 0, got %d", c.DelaySeconds)
	}
	if c.AutoTimeoutSeconds < 0 {
		return fmt.Errorf("auto timeout seconds must be >= 0, got %d", c.AutoTimeoutSeconds)
	}
	return nil
}

// Profile is a named monitoring configuration: the rule set plus the
// polling and intervention settings that apply while it is active.
type Profile struct {
	Name         string
	PollInterval time.Duration
	Intervention InterventionConfig
	Rules        []*Rule
}

// DefaultPollInterval is the poll cadence used when a profile does not
// specify one.
const DefaultPollInterval = 500 * time.Millisecond

// Validate checks the profile and all its rules.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile requires a name")
	}
	if p.PollInterval < 0 {
		return fmt.Errorf("profile %q: poll interval must be >= 0", p.Name)
	}
	if err := p.Intervention.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	seen := make(map[string]bool, len(p.Rules))
	for _, r := range p.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Name, err)
		}
		if seen[r.Name] {
			return fmt.Errorf("profile %q: duplicate rule name %q", p.Name, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Interval returns the profile's poll interval, falling back to the default.
func (p *Profile) Interval() time.Duration {
	if p.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return p.PollInterval
}

// Registry manages profiles and provides lookup functionality.
type Registry struct {
	profiles map[string]*Profile
	order    []string
	mu       sync.RWMutex
}

// NewRegistry creates a new empty profile registry.
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]*Profile),
	}
}

// Register adds a profile to the registry.
// If a profile with the same name exists, it will be replaced.
func (r *Registry) Register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.profiles[p.Name]; !exists {
		r.order = append(r.order, p.Name)
	}
	r.profiles[p.Name] = p
}

// Get retrieves a profile by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[name]
}

// First returns the first registered profile, or nil if the registry is empty.
func (r *Registry) First() *Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	return r.profiles[r.order[0]]
}

// List returns all registered profile names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Clear removes all profiles from the registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = make(map[string]*Profile)
	r.order = nil
}
