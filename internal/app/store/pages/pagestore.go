// internal/app/store/pages/pagestore.go
package pagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratatour/internal/app/store/storeutil"
	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no page has the requested slug.
var ErrNotFound = errors.New("page not found")

// Fields is the queryable surface of the pages resource.
var Fields = cmsquery.Schema{
	"slug":      {BSON: "slug"},
	"title":     {BSON: "title"},
	"content":   {BSON: "content"},
	"updatedAt": {BSON: "updated_at", Kind: cmsquery.Time},
}

var defaultSort = bson.D{{Key: "slug", Value: 1}}

// Store provides access to the pages collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new page store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pages")}
}

// GetBySlug returns a page by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Page, error) {
	var page models.Page
	err := s.c.FindOne(ctx, bson.M{"slug": slug}).Decode(&page)
	if err == mongo.ErrNoDocuments {
		return models.Page{}, ErrNotFound
	}
	if err != nil {
		return models.Page{}, err
	}
	return page, nil
}

// Upsert creates or updates a page by slug.
// If a page with the given slug exists, it updates it; otherwise creates a new one.
func (s *Store) Upsert(ctx context.Context, page models.Page) (models.Page, error) {
	now := time.Now().UTC()
	page.UpdatedAt = &now

	filter := bson.M{"slug": page.Slug}
	update := bson.M{
		"$set": bson.M{
			"title":      page.Title,
			"content":    page.Content,
			"updated_at": page.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":  primitive.NewObjectID(),
			"slug": page.Slug,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := s.c.UpdateOne(ctx, filter, update, opts); err != nil {
		return models.Page{}, err
	}
	return s.GetBySlug(ctx, page.Slug)
}

// Find returns one page of pages matching q and the total match count.
// Pages are published on save, so q.Draft is ignored.
func (s *Store) Find(ctx context.Context, q cmsquery.Query) ([]models.Page, int64, error) {
	filter, err := Fields.Filter(q)
	if err != nil {
		return nil, 0, err
	}
	proj, err := Fields.Projection(q, "slug")
	if err != nil {
		return nil, 0, err
	}
	sortDoc, err := Fields.SortDoc(q, defaultSort)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := storeutil.Paginate(int64(q.PageSize), int64(q.Page)).SetSort(sortDoc)
	if proj != nil {
		opts.SetProjection(proj)
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	pages := []models.Page{}
	if err := cur.All(ctx, &pages); err != nil {
		return nil, 0, err
	}
	return pages, total, nil
}

// GetAll returns all pages ordered by slug.
func (s *Store) GetAll(ctx context.Context) ([]models.Page, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "slug", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	pages := []models.Page{}
	if err := cur.All(ctx, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// Delete removes a page by slug.
func (s *Store) Delete(ctx context.Context, slug string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists checks if a page with the given slug exists.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"slug": slug})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
