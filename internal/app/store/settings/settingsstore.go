// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// singleton selects the one site_settings document.
var singleton = bson.M{"singleton": true}

// Store reads and writes the storefront's global settings: site name,
// branding media, contact numbers and the home page banners.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("site_settings")}
}

// Get returns the saved settings, or the defaults when none were saved yet.
func (s *Store) Get(ctx context.Context) (*models.SiteSettings, error) {
	var out models.SiteSettings
	err := s.c.FindOne(ctx, singleton).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		def := models.DefaultSiteSettings()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Save replaces every editable field and returns the stored document.
// Fields left empty in settings are cleared, not kept.
func (s *Store) Save(ctx context.Context, settings models.SiteSettings) (*models.SiteSettings, error) {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"singleton":    true,
		"site_name":    settings.SiteName,
		"logo":         settings.Logo,
		"favicon":      settings.Favicon,
		"phone_number": settings.PhoneNumber,
		"zalo_number":  settings.ZaloNumber,
		"email":        settings.Email,
		"banners":      settings.Banners,
		"updated_at":   now,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.SiteSettings
	if err := s.c.FindOneAndUpdate(ctx, singleton, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Exists reports whether settings have ever been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	n, err := s.c.CountDocuments(ctx, singleton, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
