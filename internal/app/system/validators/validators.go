// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// slugPattern matches the lowercase, hyphen-separated slugs the content API
// produces.
const slugPattern = "^[a-z0-9]+(-[a-z0-9]+)*$"

// collection pairs a content collection with its JSON-Schema validator.
type collection struct {
	name   string
	schema func() bson.M
}

var contentCollections = []collection{
	{"tours", toursSchema},
	{"categories", categoriesSchema},
	{"pages", pagesSchema},
	{"site_settings", siteSettingsSchema},
}

// EnsureAll creates the content collections and attaches their validators.
// Servers without collMod support (some DocumentDB releases) keep the
// collection and skip the validator.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, c := range contentCollections {
		if _, err := ensureCollection(ctx, db, c.name); err != nil {
			problems = append(problems, c.name+": "+err.Error())
			continue
		}
		err := setValidator(ctx, db, c.name, c.schema())
		switch {
		case err == nil:
		case isNoSuchCommand(err), isNotImplemented(err):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			problems = append(problems, c.name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection reports created only when this call made the collection.
// A failed listing falls through to CreateCollection, which tolerates races.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	if exists, err := collectionExists(ctx, db, name); err == nil && exists {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("create collection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

// setValidator uses moderate validation so documents written before a schema
// change can still be updated.
func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Debug("validator set", zap.String("collection", name))
	return nil
}

// commandErr matches err by server code or, for drivers and proxies that
// rewrite codes, by message.
func commandErr(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErr(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErr(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErr(err, 115, "not implemented", "not supported")
}

// toursSchema covers both the draft and published copy of a tour.
// Counters never go negative.
func toursSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"document_id", "slug", "title", "price", "published"},
			"properties": bson.M{
				"document_id":   bson.M{"bsonType": "string", "minLength": 1},
				"slug":          bson.M{"bsonType": "string", "minLength": 1, "pattern": slugPattern},
				"title":         bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"price":         bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
				"published":     bson.M{"bsonType": "bool"},
				"review_count":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"booking_count": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			},
		},
	}
}

func categoriesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"document_id", "slug"},
			"properties": bson.M{
				"document_id": bson.M{"bsonType": "string", "minLength": 1},
				"slug":        bson.M{"bsonType": "string", "minLength": 1},
				"order":       bson.M{"bsonType": bson.A{"int", "long"}},
			},
		},
	}
}

// pagesSchema limits pages to the fixed set of content page slugs.
func pagesSchema() bson.M {
	slugs := bson.A{}
	for _, s := range models.AllPageSlugs() {
		slugs = append(slugs, s)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"slug"},
			"properties": bson.M{
				"slug":    bson.M{"enum": slugs},
				"title":   bson.M{"bsonType": "string"},
				"content": bson.M{"bsonType": "string"},
			},
		},
	}
}

func siteSettingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"site_name": bson.M{"bsonType": "string"},
				"banners":   bson.M{"bsonType": "array"},
			},
		},
	}
}
