package viewdata

import (
	"html/template"
	"strconv"

	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

// TourCard is the presentational form of a tour, shared by listings and
// the detail page.
type TourCard struct {
	DocumentID       string
	Slug             string
	URL              string
	Title            string
	ShortDescription string
	Destination      string
	Duration         string
	Departure        string
	CategoryName     string
	CategoryURL      string
	ThumbURL         string
	ThumbAlt         string

	PriceText         string
	OriginalPriceText string
	DiscountPercent   int

	Rating       string
	ReviewCount  int
	BookingCount int
	Featured     bool
}

// Card converts a tour for display.
func Card(t models.Tour) TourCard {
	c := TourCard{
		DocumentID:       t.DocumentID,
		Slug:             t.Slug,
		URL:              "/tour/" + t.Slug,
		Title:            htmlsanitize.StripTags(t.Title),
		ShortDescription: htmlsanitize.StripTags(t.ShortDescription),
		Destination:      t.Destination,
		Duration:         t.Duration,
		Departure:        t.Departure,
		ThumbURL:         MediaURL(t.Thumbnail),
		PriceText:        FormatPrice(t.Price),
		DiscountPercent:  t.DiscountPercent(),
		Rating:           strconv.FormatFloat(t.SafeRating(), 'f', 1, 64),
		ReviewCount:      t.Counts().ReviewCount,
		BookingCount:     t.Counts().BookingCount,
		Featured:         t.Featured,
	}
	if t.Thumbnail != nil {
		c.ThumbAlt = t.Thumbnail.AlternativeText
	}
	if c.ThumbAlt == "" {
		c.ThumbAlt = c.Title
	}
	if c.DiscountPercent > 0 {
		c.OriginalPriceText = FormatPrice(*t.OriginalPrice)
	}
	if t.Category != nil && t.Category.Slug != "" {
		c.CategoryName = t.Category.Name
		if c.CategoryName == "" {
			c.CategoryName = models.DefaultCategoryName
		}
		c.CategoryURL = "/category/" + t.Category.Slug
	}
	return c
}

// Cards converts a slice of tours.
func Cards(tours []models.Tour) []TourCard {
	out := make([]TourCard, 0, len(tours))
	for _, t := range tours {
		out = append(out, Card(t))
	}
	return out
}

// DayVM is one itinerary day.
type DayVM struct {
	Day         int
	Title       string
	Description template.HTML
}

// ImageVM is a resolved gallery image.
type ImageVM struct {
	URL string
	Alt string
}

// TourDetail extends TourCard with the content of the detail page.
type TourDetail struct {
	TourCard
	Content   template.HTML
	Gallery   []ImageVM
	FileURL   string
	FileName  string
	Itinerary []DayVM
	Includes  []string
	Excludes  []string
	Notes     []string
	Excerpt   string
}

// Detail converts a tour for the detail page.
func Detail(t models.Tour) TourDetail {
	d := TourDetail{
		TourCard: Card(t),
		Content:  htmlsanitize.PrepareForDisplay(t.Content),
		Includes: t.Includes,
		Excludes: t.Excludes,
		Notes:    t.Notes,
		Excerpt:  htmlsanitize.Excerpt(firstNonEmpty(t.ShortDescription, t.Content), 160),
	}
	for _, m := range t.Gallery {
		m := m
		if u := MediaURL(&m); u != "" {
			d.Gallery = append(d.Gallery, ImageVM{URL: u, Alt: m.AlternativeText})
		}
	}
	if t.File != nil {
		d.FileURL = MediaURL(t.File)
		d.FileName = t.File.Name
		if d.FileName == "" {
			d.FileName = "Tải lịch trình"
		}
	}
	for _, day := range t.Itinerary {
		d.Itinerary = append(d.Itinerary, DayVM{
			Day:         day.Day,
			Title:       htmlsanitize.StripTags(day.Title),
			Description: htmlsanitize.PrepareForDisplay(day.Description),
		})
	}
	return d
}

// CategoryCard is the presentational form of a category.
type CategoryCard struct {
	Slug        string
	URL         string
	Name        string
	Description string
	Icon        string
	ImageURL    string
}

// Category converts a category for display.
func Category(c models.Category) CategoryCard {
	return CategoryCard{
		Slug:        c.Slug,
		URL:         "/category/" + c.Slug,
		Name:        c.DisplayName(),
		Description: htmlsanitize.StripTags(c.Description),
		Icon:        c.Icon,
		ImageURL:    MediaURL(c.Image),
	}
}

// Categories converts a slice of categories.
func Categories(cats []models.Category) []CategoryCard {
	out := make([]CategoryCard, 0, len(cats))
	for _, c := range cats {
		out = append(out, Category(c))
	}
	return out
}

// BannerVM is a resolved carousel slide.
type BannerVM struct {
	ImageURL string
	Title    string
	Subtitle string
	LinkURL  string
	LinkText string
}

// Banners converts the settings carousel.
func Banners(slides []models.BannerSlide) []BannerVM {
	out := make([]BannerVM, 0, len(slides))
	for _, s := range slides {
		out = append(out, BannerVM{
			ImageURL: MediaURL(s.Image),
			Title:    s.Title,
			Subtitle: s.Subtitle,
			LinkURL:  s.LinkURL,
			LinkText: s.LinkText,
		})
	}
	return out
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

// Pager is the prev/next navigation under a paged listing.
type Pager struct {
	Page      int
	PageCount int
	PrevURL   string
	NextURL   string
}

// NewPager builds a Pager; link(n) returns the URL of page n.
func NewPager(page, pageCount int, link func(n int) string) Pager {
	p := Pager{Page: page, PageCount: pageCount}
	if page > 1 {
		p.PrevURL = link(page - 1)
	}
	if page < pageCount {
		p.NextURL = link(page + 1)
	}
	return p
}
