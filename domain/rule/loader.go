package rule

import (
	"fmt"
	"image/color"
	"io/fs"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlProfile is the YAML structure for profile definitions.
type yamlProfile struct {
	Name           string     `yaml:"name"`
	PollIntervalMs int        `yaml:"poll_interval_ms"`
	Delay          int        `yaml:"delay_seconds"`
	Popup          *bool      `yaml:"popup"`
	AutoTimeout    *int       `yaml:"auto_timeout_seconds"`
	Rules          []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Name          string          `yaml:"name"`
	Logic         string          `yaml:"logic"`
	N             int             `yaml:"n"`
	Groups        []yamlGroup     `yaml:"groups"`
	Conditions    []yamlCondition `yaml:"conditions"`
	ClickPosition *yamlPoint      `yaml:"click_position"`
	ClickStrategy string          `yaml:"click_strategy"`
	ClickType     string          `yaml:"click_type"`
}

type yamlGroup struct {
	Name       string          `yaml:"name"`
	Logic      string          `yaml:"logic"`
	N          int             `yaml:"n"`
	Conditions []yamlCondition `yaml:"conditions"`
}

type yamlCondition struct {
	Type       string     `yaml:"type"`
	Region     yamlRegion `yaml:"region"`
	Color      *yamlColor `yaml:"color"`
	Text       string     `yaml:"text"`
	Comparator string     `yaml:"comparator"`
	Tolerance  int        `yaml:"tolerance"`
}

type yamlRegion struct {
	X  int  `yaml:"x"`
	Y  int  `yaml:"y"`
	X2 *int `yaml:"x2"`
	Y2 *int `yaml:"y2"`
}

type yamlColor struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

type yamlPoint struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Loader handles loading profile definitions from various sources.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new profile loader that populates the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// LoadFromFS loads profile definitions from an embedded or real filesystem.
// It expects YAML files in a "profiles" subdirectory.
func (l *Loader) LoadFromFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, "profiles")
	if err != nil {
		return fmt.Errorf("failed to read profiles directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		if err := l.loadFile(fsys, "profiles/"+entry.Name()); err != nil {
			return err
		}
	}

	return nil
}

// loadFile loads a single profile definition file.
func (l *Loader) loadFile(fsys fs.FS, path string) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	profile, err := ParseProfile(data)
	if err != nil {
		return fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	l.registry.Register(profile)
	return nil
}

// ParseProfile parses a single YAML profile document and validates it.
func ParseProfile(data []byte) (*Profile, error) {
	var yp yamlProfile
	if err := yaml.Unmarshal(data, &yp); err != nil {
		return nil, err
	}

	profile, err := convertYAMLProfile(&yp)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func convertYAMLProfile(yp *yamlProfile) (*Profile, error) {
	intervention := DefaultInterventionConfig()
	intervention.DelaySeconds = yp.Delay
	if yp.Popup != nil {
		intervention.PopupEnabled = *yp.Popup
	}
	if yp.AutoTimeout != nil {
		intervention.AutoTimeoutSeconds = *yp.AutoTimeout
	}

	profile := &Profile{
		Name:         yp.Name,
		PollInterval: time.Duration(yp.PollIntervalMs) * time.Millisecond,
		Intervention: intervention,
	}

	for i := range yp.Rules {
		r, err := convertYAMLRule(&yp.Rules[i])
		if err != nil {
			return nil, err
		}
		profile.Rules = append(profile.Rules, r)
	}

	return profile, nil
}

func convertYAMLRule(yr *yamlRule) (*Rule, error) {
	r := &Rule{
		Name:          yr.Name,
		Logic:         defaultLogic(yr.Logic, LogicAny),
		N:             yr.N,
		ClickStrategy: ClickStrategy(yr.ClickStrategy),
		ClickType:     ClickType(yr.ClickType),
	}
	if r.ClickStrategy == "" {
		r.ClickStrategy = StrategyFirst
	}
	if r.ClickType == "" {
		r.ClickType = ClickSingle
	}
	if yr.ClickPosition != nil {
		r.ClickPosition = &Point{X: yr.ClickPosition.X, Y: yr.ClickPosition.Y}
	}

	for i := range yr.Groups {
		yg := &yr.Groups[i]
		g := &Group{
			Name:  yg.Name,
			Logic: defaultLogic(yg.Logic, LogicAll),
			N:     yg.N,
		}
		for j := range yg.Conditions {
			c, err := convertYAMLCondition(&yg.Conditions[j])
			if err != nil {
				return nil, fmt.Errorf("rule %q group %q: %w", yr.Name, yg.Name, err)
			}
			g.Conditions = append(g.Conditions, c)
		}
		r.Groups = append(r.Groups, g)
	}

	for i := range yr.Conditions {
		c, err := convertYAMLCondition(&yr.Conditions[i])
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", yr.Name, err)
		}
		r.Conditions = append(r.Conditions, c)
	}

	return r, nil
}

func convertYAMLCondition(yc *yamlCondition) (*Condition, error) {
	region := PointRegion(yc.Region.X, yc.Region.Y)
	if yc.Region.X2 != nil && yc.Region.Y2 != nil {
		region = RectRegion(yc.Region.X, yc.Region.Y, *yc.Region.X2, *yc.Region.Y2)
	}

	cmp := Comparator(yc.Comparator)
	if cmp == "" {
		cmp = CompEquals
	}

	switch ConditionKind(yc.Type) {
	case KindColor:
		if yc.Color == nil {
			return nil, fmt.Errorf("color condition requires a color value")
		}
		target := color.RGBA{R: yc.Color.R, G: yc.Color.G, B: yc.Color.B, A: 255}
		tolerance := yc.Tolerance
		if tolerance == 0 && cmp != CompEquals {
			tolerance = 10
		}
		return NewColorCondition(region, target, cmp, tolerance)
	case KindText:
		return NewTextCondition(region, yc.Text, cmp)
	default:
		return nil, fmt.Errorf("unknown condition type %q", yc.Type)
	}
}

func defaultLogic(s string, fallback Logic) Logic {
	if s == "" {
		return fallback
	}
	return Logic(s)
}
