package categorystore

import (
	"errors"
	"testing"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/stratatour/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStore_CreateAndFindOrdered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, c := range []models.Category{
		{Slug: "mien-nam", Name: "South", Ten: "Miền Nam", Order: 3},
		{Slug: "mien-bac", Name: "North", Ten: "Miền Bắc", Order: 1},
		{Slug: "mien-trung", Name: "Central", Order: 2},
	} {
		if _, err := store.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.Slug, err)
		}
	}

	cats, total, err := store.Find(ctx, cmsquery.Query{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if total != 3 || cats[0].Slug != "mien-bac" || cats[2].Slug != "mien-nam" {
		t.Errorf("Find() = %+v", cats)
	}
	if cats[0].DocumentID == "" {
		t.Error("Create should assign a documentId")
	}
}

func TestStore_DuplicateSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.Category{Slug: "bien", Name: "Beach"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Create(ctx, models.Category{Slug: "bien", Name: "Beach 2"}); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("Create(duplicate) error = %v, want ErrDuplicateSlug", err)
	}
}

func TestStore_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, _ := store.Create(ctx, models.Category{Slug: "nui", Name: "Mountains"})
	got, err := store.Update(ctx, c.DocumentID, bson.M{"ten": "Núi rừng"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.DisplayName() != "Núi rừng" {
		t.Errorf("DisplayName() = %q", got.DisplayName())
	}

	if _, err := store.Delete(ctx, c.DocumentID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.GetBySlug(ctx, "nui"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBySlug after delete error = %v, want ErrNotFound", err)
	}
	if _, err := store.Update(ctx, c.DocumentID, bson.M{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}
