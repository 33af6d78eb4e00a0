// internal/domain/models/tour.go
package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tour is a sellable travel package.
//
// The CMS keeps up to two stored versions per DocumentID: the draft
// (Published == false, PublishedAt == nil) and the published copy.
// Both JSON and BSON use the same struct; the storefront decodes the
// content API's JSON into it, so every optional field tolerates absence.
type Tour struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DocumentID string             `bson:"document_id" json:"documentId"`
	Published  bool               `bson:"published" json:"-"`

	Slug             string `bson:"slug" json:"slug"`
	Title            string `bson:"title" json:"title"`
	ShortDescription string `bson:"short_description,omitempty" json:"shortDescription,omitempty"`
	Content          string `bson:"content,omitempty" json:"content,omitempty"` // sanitized HTML

	Price         float64  `bson:"price" json:"price"`
	OriginalPrice *float64 `bson:"original_price,omitempty" json:"originalPrice,omitempty"`

	Destination string       `bson:"destination,omitempty" json:"destination,omitempty"`
	Duration    string       `bson:"duration,omitempty" json:"duration,omitempty"`
	Departure   string       `bson:"departure,omitempty" json:"departure,omitempty"`
	Category    *CategoryRef `bson:"category,omitempty" json:"category,omitempty"`

	Thumbnail *Media  `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Gallery   []Media `bson:"gallery,omitempty" json:"gallery,omitempty"`
	File      *Media  `bson:"file,omitempty" json:"file,omitempty"`

	Itinerary []ItineraryDay `bson:"itinerary,omitempty" json:"itinerary,omitempty"`
	Includes  []string       `bson:"includes,omitempty" json:"includes,omitempty"`
	Excludes  []string       `bson:"excludes,omitempty" json:"excludes,omitempty"`
	Notes     []string       `bson:"notes,omitempty" json:"notes,omitempty"`

	Rating       float64 `bson:"rating" json:"rating"`
	ReviewCount  int     `bson:"review_count" json:"reviewCount"`
	BookingCount int     `bson:"booking_count" json:"bookingCount"`

	Featured bool `bson:"featured" json:"featured"`

	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
	PublishedAt *time.Time `bson:"published_at" json:"publishedAt"`
}

// CategoryRef is the denormalized category link stored on a tour.
type CategoryRef struct {
	DocumentID string `bson:"document_id" json:"documentId"`
	Slug       string `bson:"slug" json:"slug"`
	Name       string `bson:"name" json:"name"`
}

// Media references a file in the CMS media library. URL is either absolute
// (CDN) or a storage path resolved by the storefront.
type Media struct {
	URL             string `bson:"url" json:"url"`
	AlternativeText string `bson:"alternative_text,omitempty" json:"alternativeText,omitempty"`
	Name            string `bson:"name,omitempty" json:"name,omitempty"`
}

// ItineraryDay is one day of a tour programme.
type ItineraryDay struct {
	Day         int    `bson:"day" json:"day"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// Counts holds the engagement counters shown on tour cards.
type Counts struct {
	ReviewCount  int `json:"reviewCount"`
	BookingCount int `json:"bookingCount"`
}

// Add returns c plus d, never going below zero.
func (c Counts) Add(d Counts) Counts {
	return Counts{
		ReviewCount:  max(c.ReviewCount+d.ReviewCount, 0),
		BookingCount: max(c.BookingCount+d.BookingCount, 0),
	}
}

// Clamped returns c with negative counters raised to zero.
func (c Counts) Clamped() Counts {
	return Counts{ReviewCount: max(c.ReviewCount, 0), BookingCount: max(c.BookingCount, 0)}
}

// Counts returns the tour's engagement counters with negatives clamped to zero.
func (t *Tour) Counts() Counts {
	return Counts{ReviewCount: t.ReviewCount, BookingCount: t.BookingCount}.Clamped()
}

// SafeRating clamps the rating into [0, 5].
func (t *Tour) SafeRating() float64 {
	if t.Rating < 0 || math.IsNaN(t.Rating) {
		return 0
	}
	return math.Min(t.Rating, 5)
}

// IsPublished reports whether this version is the published one.
func (t *Tour) IsPublished() bool {
	return t.PublishedAt != nil
}

// DiscountPercent returns the discount shown next to the price.
func (t *Tour) DiscountPercent() int {
	if t.OriginalPrice == nil {
		return 0
	}
	return DiscountPercent(t.Price, *t.OriginalPrice)
}

// DiscountPercent is 0 when originalPrice <= price, otherwise the rounded
// percentage saved relative to originalPrice.
func DiscountPercent(price, originalPrice float64) int {
	if originalPrice <= 0 || originalPrice <= price {
		return 0
	}
	return int(math.Round((originalPrice - price) / originalPrice * 100))
}
