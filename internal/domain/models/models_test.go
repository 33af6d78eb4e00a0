package models

import "testing"

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name          string
		price         float64
		originalPrice float64
		want          int
	}{
		{"typical discount", 780000, 1000000, 22},
		{"no original price", 500000, 0, 0},
		{"original equals price", 500000, 500000, 0},
		{"original below price", 600000, 500000, 0},
		{"rounds half up", 875, 1000, 13},
		{"free tour", 0, 1000000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountPercent(tt.price, tt.originalPrice); got != tt.want {
				t.Errorf("DiscountPercent(%v, %v) = %d, want %d", tt.price, tt.originalPrice, got, tt.want)
			}
		})
	}
}

func TestTour_DiscountPercent_NilOriginal(t *testing.T) {
	tour := Tour{Price: 100}
	if got := tour.DiscountPercent(); got != 0 {
		t.Errorf("DiscountPercent() = %d, want 0", got)
	}
	orig := 200.0
	tour.OriginalPrice = &orig
	if got := tour.DiscountPercent(); got != 50 {
		t.Errorf("DiscountPercent() = %d, want 50", got)
	}
}

func TestCategory_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want string
	}{
		{"alias wins", Category{Name: "Domestic", Ten: "Trong nước"}, "Trong nước"},
		{"canonical name", Category{Name: "Domestic"}, "Domestic"},
		{"blank alias ignored", Category{Name: "Domestic", Ten: "   "}, "Domestic"},
		{"placeholder", Category{}, DefaultCategoryName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cat.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCounts_AddClampsAtZero(t *testing.T) {
	got := Counts{ReviewCount: 1, BookingCount: 5}.Add(Counts{ReviewCount: -3, BookingCount: 2})
	if got.ReviewCount != 0 || got.BookingCount != 7 {
		t.Errorf("Add() = %+v, want {0 7}", got)
	}
}

func TestTour_CountsClampsNegatives(t *testing.T) {
	tour := Tour{ReviewCount: -4, BookingCount: 9}
	c := tour.Counts()
	if c.ReviewCount != 0 || c.BookingCount != 9 {
		t.Errorf("Counts() = %+v", c)
	}
}

func TestSiteSettings_ContactLinks(t *testing.T) {
	s := SiteSettings{PhoneNumber: "+84 912 345 678", ZaloNumber: "0912-345-678"}
	if got := s.PhoneURL(); got != "tel:+84912345678" {
		t.Errorf("PhoneURL() = %q", got)
	}
	if got := s.ZaloURL(); got != "https://zalo.me/0912345678" {
		t.Errorf("ZaloURL() = %q", got)
	}
	empty := SiteSettings{}
	if empty.PhoneURL() != "" || empty.ZaloURL() != "" {
		t.Error("expected empty links for empty settings")
	}
}

func TestDefaults(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range DefaultCategories() {
		if seen[c.Slug] {
			t.Errorf("duplicate category slug %q", c.Slug)
		}
		seen[c.Slug] = true
	}
	for _, tour := range SampleTours() {
		if tour.Category == nil || !seen[tour.Category.Slug] {
			t.Errorf("tour %q references unknown category", tour.Slug)
		}
		if tour.Price < 0 {
			t.Errorf("tour %q has negative price", tour.Slug)
		}
	}
	if got := len(DefaultPages()); got != len(AllPageSlugs()) {
		t.Errorf("DefaultPages() returned %d pages, want %d", got, len(AllPageSlugs()))
	}
	if p := DefaultPage("nope"); p.Slug != "" {
		t.Errorf("DefaultPage(unknown) = %+v, want zero", p)
	}
}
