package repository

import (
	"image/color"
	"testing"
	"time"

	"pixelwarden-go/domain/rule"
)

func TestDefaultMongoDBConfig(t *testing.T) {
	config := DefaultMongoDBConfig()

	if config == nil {
		t.Fatal("DefaultMongoDBConfig returned nil")
	}

	if config.URI != "mongodb://localhost:27017" {
		t.Errorf("URI = %v, want mongodb://localhost:27017", config.URI)
	}

	if config.Database != "pixelwarden" {
		t.Errorf("Database = %v, want pixelwarden", config.Database)
	}

	if config.ConnectTimeout != 10*1e9 {
		t.Errorf("ConnectTimeout = %v, want 10s", config.ConnectTimeout)
	}

	if config.PingTimeout != 5*1e9 {
		t.Errorf("PingTimeout = %v, want 5s", config.PingTimeout)
	}
}

func sampleStoredProfile(t *testing.T) *rule.Profile {
	t.Helper()

	colorCond, err := rule.NewColorCondition(rule.PointRegion(100, 200), color.RGBA{R: 10, G: 20, B: 30, A: 255}, rule.CompSimilar, 15)
	if err != nil {
		t.Fatal(err)
	}
	textCond, err := rule.NewTextCondition(rule.RectRegion(0, 0, 300, 50), "Build complete", rule.CompContains)
	if err != nil {
		t.Fatal(err)
	}

	return &rule.Profile{
		Name:         "stored",
		PollInterval: 750 * time.Millisecond,
		Intervention: rule.InterventionConfig{
			DelaySeconds:       2,
			PopupEnabled:       true,
			AutoTimeoutSeconds: 10,
		},
		Rules: []*rule.Rule{
			{
				Name: "dialog-ok",
				Groups: []*rule.Group{
					{
						Name:       "colors",
						Logic:      rule.LogicAll,
						Conditions: []*rule.Condition{colorCond},
					},
				},
				Conditions:    []*rule.Condition{textCond},
				Logic:         rule.LogicAll,
				ClickPosition: &rule.Point{X: 640, Y: 480},
				ClickStrategy: rule.StrategyFirst,
				ClickType:     rule.ClickDouble,
			},
		},
	}
}

func TestProfileDocument_RoundTrip(t *testing.T) {
	p := sampleStoredProfile(t)

	doc := profileToDocument(p)
	got, err := documentToProfile(doc)
	if err != nil {
		t.Fatalf("documentToProfile() error = %v", err)
	}

	if got.Name != p.Name {
		t.Errorf("Name = %v, want %v", got.Name, p.Name)
	}
	if got.PollInterval != p.PollInterval {
		t.Errorf("PollInterval = %v, want %v", got.PollInterval, p.PollInterval)
	}
	if got.Intervention != p.Intervention {
		t.Errorf("Intervention = %+v, want %+v", got.Intervention, p.Intervention)
	}
	if len(got.Rules) != 1 {
		t.Fatalf("Rules length = %d, want 1", len(got.Rules))
	}

	r := got.Rules[0]
	if r.Name != "dialog-ok" {
		t.Errorf("rule name = %v, want dialog-ok", r.Name)
	}
	if r.ClickPosition == nil || r.ClickPosition.X != 640 || r.ClickPosition.Y != 480 {
		t.Errorf("ClickPosition = %+v, want (640,480)", r.ClickPosition)
	}
	if r.ClickType != rule.ClickDouble {
		t.Errorf("ClickType = %v, want double", r.ClickType)
	}
	if len(r.Groups) != 1 || len(r.Groups[0].Conditions) != 1 {
		t.Fatalf("groups = %+v, want 1 group with 1 condition", r.Groups)
	}

	gc := r.Groups[0].Conditions[0]
	if gc.Kind != rule.KindColor {
		t.Errorf("group condition kind = %v, want color", gc.Kind)
	}
	if !gc.Region.IsPoint() {
		t.Error("group condition region should be a point")
	}
	if gc.Color.R != 10 || gc.Color.G != 20 || gc.Color.B != 30 {
		t.Errorf("color = %+v, want rgb(10,20,30)", gc.Color)
	}
	if gc.Tolerance != 15 {
		t.Errorf("tolerance = %d, want 15", gc.Tolerance)
	}

	sc := r.Conditions[0]
	if sc.Kind != rule.KindText {
		t.Errorf("standalone condition kind = %v, want text", sc.Kind)
	}
	if sc.Region.IsPoint() {
		t.Error("standalone condition region should be a rect")
	}
	if sc.Text != "Build complete" {
		t.Errorf("text = %q, want %q", sc.Text, "Build complete")
	}
}

func TestDocumentToCondition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  conditionDocument
	}{
		{
			"unknown kind",
			conditionDocument{Kind: "shape", Region: regionDocument{Pt: true}},
		},
		{
			"color condition without color",
			conditionDocument{Kind: "color", Region: regionDocument{Pt: true}, Comparator: "similar"},
		},
		{
			"text condition without text",
			conditionDocument{Kind: "text", Region: regionDocument{Pt: true}, Comparator: "contains"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := documentToCondition(&tt.doc); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDocumentToProfile_InvalidRuleRejected(t *testing.T) {
	doc := &profileDocument{
		Name: "broken",
		Rules: []ruleDocument{
			{
				Name:  "no-conditions",
				Logic: "all",
			},
		},
	}

	if _, err := documentToProfile(doc); err == nil {
		t.Error("expected validation error for rule without conditions")
	}
}
