// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// index is one desired index on a content collection.
type index struct {
	name   string
	keys   bson.D
	unique bool
}

func (ix index) model() mongo.IndexModel {
	opts := options.Index().SetName(ix.name)
	if ix.unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: ix.keys, Options: opts}
}

func asc(fields ...string) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			d = append(d, bson.E{Key: f[1:], Value: -1})
			continue
		}
		d = append(d, bson.E{Key: f, Value: 1})
	}
	return d
}

// wanted lists the indexes per collection. A tour has one draft row and at
// most one published row, so uniqueness is on (slug, published) and
// (document_id, published).
var wanted = []struct {
	collection string
	indexes    []index
}{
	{"tours", []index{
		{name: "uniq_tours_slug_published", keys: asc("slug", "published"), unique: true},
		{name: "uniq_tours_document_published", keys: asc("document_id", "published"), unique: true},
		{name: "idx_tours_category_created", keys: asc("published", "category.slug", "-created_at")},
		{name: "idx_tours_featured_created", keys: asc("published", "-featured", "-created_at")},
		{name: "idx_tours_category_document", keys: asc("category.document_id")},
	}},
	{"categories", []index{
		{name: "uniq_categories_slug", keys: asc("slug"), unique: true},
		{name: "uniq_categories_document", keys: asc("document_id"), unique: true},
		{name: "idx_categories_order", keys: asc("order", "name")},
	}},
	{"pages", []index{
		{name: "uniq_pages_slug", keys: asc("slug"), unique: true},
	}},
	{"site_settings", []index{
		{name: "uniq_sitesettings_singleton", keys: asc("singleton"), unique: true},
	}},
}

// EnsureAll reconciles the content collections' indexes. It is safe to run
// on every start; problems from all collections are reported together.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, w := range wanted {
		if err := reconcile(ctx, db.Collection(w.collection), w.indexes); err != nil {
			problems = append(problems, w.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
}

// keySig identifies an index by its key pattern, ignoring its name, so an
// index created by hand under another name is reused.
func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ",")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]existingIndex)
	for cur.Next(ctx) {
		var ex existingIndex
		if err := cur.Decode(&ex); err != nil {
			continue
		}
		out[keySig(ex.Key)] = ex
	}
	return out, cur.Err()
}

// reconcile creates missing indexes and rebuilds ones whose uniqueness
// differs from what is wanted. A collection that does not exist yet lists
// no indexes and gets everything created.
func reconcile(ctx context.Context, coll *mongo.Collection, want []index) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		existing = nil
	}

	var errs []string
	for _, ix := range want {
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("index", ix.name))

		if ex, ok := existing[keySig(ix.keys)]; ok {
			if ex.Unique == ix.unique {
				log.Debug("index present", zap.String("existing_name", ex.Name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s: %v", ix.name, ex.Name, err))
				continue
			}
			log.Info("dropped index with stale options", zap.String("existing_name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, ix.model()); err != nil {
			if ix.unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: duplicates present, cannot enforce uniqueness", ix.name))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", ix.name, err))
			}
			log.Warn("index create failed", zap.Error(err))
			continue
		}
		log.Info("index created", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}
