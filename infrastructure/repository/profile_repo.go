package repository

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pixelwarden-go/domain/rule"
)

// profileDocument is the MongoDB document structure for profiles.
// Profiles are keyed by name; upserts replace the whole document.
type profileDocument struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	Name           string               `bson:"name"`
	PollIntervalMs int64                `bson:"poll_interval_ms"`
	Intervention   interventionDocument `bson:"intervention"`
	Rules          []ruleDocument       `bson:"rules"`
}

type interventionDocument struct {
	DelaySeconds       int  `bson:"delay_seconds"`
	PopupEnabled       bool `bson:"popup_enabled"`
	AutoTimeoutSeconds int  `bson:"auto_timeout_seconds"`
}

type ruleDocument struct {
	Name          string              `bson:"name"`
	Logic         string              `bson:"logic"`
	N             int                 `bson:"n,omitempty"`
	Groups        []groupDocument     `bson:"groups,omitempty"`
	Conditions    []conditionDocument `bson:"conditions,omitempty"`
	ClickPosition *pointDocument      `bson:"click_position,omitempty"`
	ClickStrategy string              `bson:"click_strategy"`
	ClickType     string              `bson:"click_type"`
}

type groupDocument struct {
	Name       string              `bson:"name"`
	Logic      string              `bson:"logic"`
	N          int                 `bson:"n,omitempty"`
	Conditions []conditionDocument `bson:"conditions"`
}

type conditionDocument struct {
	Kind       string         `bson:"kind"`
	Region     regionDocument `bson:"region"`
	Color      *colorDocument `bson:"color,omitempty"`
	Text       string         `bson:"text,omitempty"`
	Comparator string         `bson:"comparator"`
	Tolerance  int            `bson:"tolerance,omitempty"`
}

type regionDocument struct {
	X  int  `bson:"x"`
	Y  int  `bson:"y"`
	X2 int  `bson:"x2,omitempty"`
	Y2 int  `bson:"y2,omitempty"`
	Pt bool `bson:"point"`
}

type colorDocument struct {
	R uint8 `bson:"r"`
	G uint8 `bson:"g"`
	B uint8 `bson:"b"`
}

type pointDocument struct {
	X int `bson:"x"`
	Y int `bson:"y"`
}

// MongoProfileRepository implements rule.Repository using MongoDB.
type MongoProfileRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoProfileRepository creates a new MongoDB-based profile repository.
func NewMongoProfileRepository(db *MongoDB, logger *slog.Logger) *MongoProfileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoProfileRepository{
		collection: db.Collection("profile"),
		logger:     logger,
	}
}

// FindByName retrieves a profile by name.
func (r *MongoProfileRepository) FindByName(ctx context.Context, name string) (*rule.Profile, error) {
	filter := bson.M{"name": name}
	var doc profileDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, rule.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return documentToProfile(&doc)
}

// FindAll retrieves all stored profiles.
func (r *MongoProfileRepository) FindAll(ctx context.Context) ([]*rule.Profile, error) {
	cursor, err := r.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to find profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []profileDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}

	profiles := make([]*rule.Profile, 0, len(docs))
	for i := range docs {
		p, err := documentToProfile(&docs[i])
		if err != nil {
			r.logger.Warn("Skipping invalid stored profile", "name", docs[i].Name, "error", err)
			continue
		}
		profiles = append(profiles, p)
	}

	return profiles, nil
}

// Upsert inserts or replaces the profile with the same name.
func (r *MongoProfileRepository) Upsert(ctx context.Context, p *rule.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid profile: %w", err)
	}

	doc := profileToDocument(p)
	filter := bson.M{"name": p.Name}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	r.logger.Info("Profile stored", "name", p.Name, "rules", len(p.Rules))
	return nil
}

// Delete removes a profile by name.
func (r *MongoProfileRepository) Delete(ctx context.Context, name string) error {
	filter := bson.M{"name": name}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if result.DeletedCount == 0 {
		return rule.ErrProfileNotFound
	}

	r.logger.Info("Profile deleted", "name", name)
	return nil
}

// documentToProfile converts a MongoDB document to a domain Profile.
func documentToProfile(doc *profileDocument) (*rule.Profile, error) {
	p := &rule.Profile{
		Name:         doc.Name,
		PollInterval: time.Duration(doc.PollIntervalMs) * time.Millisecond,
		Intervention: rule.InterventionConfig{
			DelaySeconds:       doc.Intervention.DelaySeconds,
			PopupEnabled:       doc.Intervention.PopupEnabled,
			AutoTimeoutSeconds: doc.Intervention.AutoTimeoutSeconds,
		},
	}

	for i := range doc.Rules {
		rl, err := documentToRule(&doc.Rules[i])
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, rl)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func documentToRule(doc *ruleDocument) (*rule.Rule, error) {
	rl := &rule.Rule{
		Name:          doc.Name,
		Logic:         rule.Logic(doc.Logic),
		N:             doc.N,
		ClickStrategy: rule.ClickStrategy(doc.ClickStrategy),
		ClickType:     rule.ClickType(doc.ClickType),
	}

	if doc.ClickPosition != nil {
		rl.ClickPosition = &rule.Point{X: doc.ClickPosition.X, Y: doc.ClickPosition.Y}
	}

	for i := range doc.Groups {
		g := &rule.Group{
			Name:  doc.Groups[i].Name,
			Logic: rule.Logic(doc.Groups[i].Logic),
			N:     doc.Groups[i].N,
		}
		for j := range doc.Groups[i].Conditions {
			c, err := documentToCondition(&doc.Groups[i].Conditions[j])
			if err != nil {
				return nil, fmt.Errorf("rule %q group %q: %w", doc.Name, g.Name, err)
			}
			g.Conditions = append(g.Conditions, c)
		}
		rl.Groups = append(rl.Groups, g)
	}

	for i := range doc.Conditions {
		c, err := documentToCondition(&doc.Conditions[i])
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", doc.Name, err)
		}
		rl.Conditions = append(rl.Conditions, c)
	}

	return rl, nil
}

func documentToCondition(doc *conditionDocument) (*rule.Condition, error) {
	var region rule.Region
	if doc.Region.Pt {
		region = rule.PointRegion(doc.Region.X, doc.Region.Y)
	} else {
		region = rule.RectRegion(doc.Region.X, doc.Region.Y, doc.Region.X2, doc.Region.Y2)
	}

	switch rule.ConditionKind(doc.Kind) {
	case rule.KindColor:
		if doc.Color == nil {
			return nil, fmt.Errorf("color condition without a color")
		}
		target := color.RGBA{R: doc.Color.R, G: doc.Color.G, B: doc.Color.B, A: 255}
		return rule.NewColorCondition(region, target, rule.Comparator(doc.Comparator), doc.Tolerance)
	case rule.KindText:
		return rule.NewTextCondition(region, doc.Text, rule.Comparator(doc.Comparator))
	default:
		return nil, fmt.Errorf("unknown condition kind %q", doc.Kind)
	}
}

// profileToDocument converts a domain Profile to a MongoDB document.
func profileToDocument(p *rule.Profile) *profileDocument {
	doc := &profileDocument{
		Name:           p.Name,
		PollIntervalMs: p.PollInterval.Milliseconds(),
		Intervention: interventionDocument{
			DelaySeconds:       p.Intervention.DelaySeconds,
			PopupEnabled:       p.Intervention.PopupEnabled,
			AutoTimeoutSeconds: p.Intervention.AutoTimeoutSeconds,
		},
	}

	for _, rl := range p.Rules {
		doc.Rules = append(doc.Rules, ruleToDocument(rl))
	}

	return doc
}

func ruleToDocument(rl *rule.Rule) ruleDocument {
	doc := ruleDocument{
		Name:          rl.Name,
		Logic:         string(rl.Logic),
		N:             rl.N,
		ClickStrategy: string(rl.ClickStrategy),
		ClickType:     string(rl.ClickType),
	}

	if rl.ClickPosition != nil {
		doc.ClickPosition = &pointDocument{X: rl.ClickPosition.X, Y: rl.ClickPosition.Y}
	}

	for _, g := range rl.Groups {
		gd := groupDocument{
			Name:  g.Name,
			Logic: string(g.Logic),
			N:     g.N,
		}
		for _, c := range g.Conditions {
			gd.Conditions = append(gd.Conditions, conditionToDocument(c))
		}
		doc.Groups = append(doc.Groups, gd)
	}

	for _, c := range rl.Conditions {
		doc.Conditions = append(doc.Conditions, conditionToDocument(c))
	}

	return doc
}

func conditionToDocument(c *rule.Condition) conditionDocument {
	doc := conditionDocument{
		Kind: string(c.Kind),
		Region: regionDocument{
			X:  c.Region.Min.X,
			Y:  c.Region.Min.Y,
			X2: c.Region.Max.X,
			Y2: c.Region.Max.Y,
			Pt: c.Region.IsPoint(),
		},
		Comparator: string(c.Comparator),
		Tolerance:  c.Tolerance,
	}

	if c.Kind == rule.KindColor {
		doc.Color = &colorDocument{R: c.Color.R, G: c.Color.G, B: c.Color.B}
	} else {
		doc.Text = c.Text
	}

	return doc
}

// Ensure MongoProfileRepository implements rule.Repository
var _ rule.Repository = (*MongoProfileRepository)(nil)
