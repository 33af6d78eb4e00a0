// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratatour/internal/app/store/storeutil"
	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("category not found")
	ErrDuplicateSlug = errors.New("category slug already in use")
)

// Fields is the queryable surface of the categories resource.
var Fields = cmsquery.Schema{
	"documentId":  {BSON: "document_id"},
	"slug":        {BSON: "slug"},
	"name":        {BSON: "name"},
	"ten":         {BSON: "ten"},
	"description": {BSON: "description"},
	"icon":        {BSON: "icon"},
	"image":       {BSON: "image"},
	"order":       {BSON: "order", Kind: cmsquery.Number},
}

var defaultSort = bson.D{{Key: "order", Value: 1}, {Key: "name", Value: 1}}

// Store provides access to the categories collection.
type Store struct {
	c *mongo.Collection
}

// New creates a new category store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("categories")}
}

// Find returns one page of categories matching q and the total match count.
// Categories have no draft state, so q.Draft is ignored.
func (s *Store) Find(ctx context.Context, q cmsquery.Query) ([]models.Category, int64, error) {
	filter, err := Fields.Filter(q)
	if err != nil {
		return nil, 0, err
	}
	proj, err := Fields.Projection(q, "document_id")
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

	cats := []models.Category{}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, 0, err
	}
	return cats, total, nil
}

// GetByDocumentID returns a category by its document id.
func (s *Store) GetByDocumentID(ctx context.Context, documentID string) (models.Category, error) {
	return s.findOne(ctx, bson.M{"document_id": documentID})
}

// GetBySlug returns a category by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	return s.findOne(ctx, bson.M{"slug": slug})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Category, error) {
	var c models.Category
	err := s.c.FindOne(ctx, filter).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// Create inserts a new category.
func (s *Store) Create(ctx context.Context, c models.Category) (models.Category, error) {
	c.ID = primitive.NewObjectID()
	if c.DocumentID == "" {
		c.DocumentID = uuid.NewString()
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicateSlug
		}
		return models.Category{}, err
	}
	return c, nil
}

// Update applies set and returns the updated category.
func (s *Store) Update(ctx context.Context, documentID string, set bson.M) (models.Category, error) {
	if set == nil {
		set = bson.M{}
	}
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"document_id": documentID}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Category{}, ErrDuplicateSlug
		}
		return models.Category{}, err
	}
	if res.MatchedCount == 0 {
		return models.Category{}, ErrNotFound
	}
	return s.GetByDocumentID(ctx, documentID)
}

// Delete removes a category and returns it as it was.
func (s *Store) Delete(ctx context.Context, documentID string) (models.Category, error) {
	c, err := s.GetByDocumentID(ctx, documentID)
	if err != nil {
		return models.Category{}, err
	}
	if _, err := s.c.DeleteOne(ctx, bson.M{"document_id": documentID}); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// Exists checks if a category with the given slug exists.
func (s *Store) Exists(ctx context.Context, slug string) (bool, error) {
	count, err := s.c.CountDocuments(ctx, bson.M{"slug": slug})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
