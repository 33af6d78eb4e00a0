package settingsstore

import (
	"testing"

	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/stratatour/internal/testutil"
)

func TestStore_Get_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	s, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.SiteName != models.DefaultSiteName {
		t.Errorf("SiteName = %q, want default", s.SiteName)
	}
	exists, _ := store.Exists(ctx)
	if exists {
		t.Error("defaults should not be persisted by Get")
	}
}

func TestStore_Save_Singleton(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in := models.SiteSettings{
		SiteName:   "Du Lịch Việt",
		ZaloNumber: "0912345678",
		Banners: []models.BannerSlide{
			{Title: "Hạ Long", LinkURL: "/tour/ha-long"},
			{Title: "Sapa", LinkURL: "/tour/sapa"},
		},
	}
	if _, err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	in.SiteName = "Du Lịch Việt 2"
	got, err := store.Save(ctx, in)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got.SiteName != "Du Lịch Việt 2" || len(got.Banners) != 2 || got.Banners[1].Title != "Sapa" {
		t.Errorf("Save() = %+v", got)
	}
	n, err := db.Collection("site_settings").CountDocuments(ctx, map[string]any{})
	if err != nil || n != 1 {
		t.Errorf("settings documents = %d, %v; want 1", n, err)
	}
}
