// internal/domain/models/page.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page represents editable content pages like About, Contact, Terms of Service, and Privacy Policy.
type Page struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Slug    string             `bson:"slug" json:"slug"`       // URL slug: "about", "contact", "terms", "privacy"
	Title   string             `bson:"title" json:"title"`     // Display title
	Content string             `bson:"content" json:"content"` // sanitized HTML

	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// Page slugs
const (
	PageSlugAbout   = "about"
	PageSlugContact = "contact"
	PageSlugTerms   = "terms"
	PageSlugPrivacy = "privacy"
)

// AllPageSlugs returns all valid page slugs.
func AllPageSlugs() []string {
	return []string{
		PageSlugAbout,
		PageSlugContact,
		PageSlugTerms,
		PageSlugPrivacy,
	}
}

// IsValidPageSlug checks if a slug is valid.
func IsValidPageSlug(slug string) bool {
	for _, s := range AllPageSlugs() {
		if s == slug {
			return true
		}
	}
	return false
}

// DefaultPageTitle returns the title used when a page has not been written yet.
func DefaultPageTitle(slug string) string {
	switch slug {
	case PageSlugAbout:
		return "Về chúng tôi"
	case PageSlugContact:
		return "Liên hệ"
	case PageSlugTerms:
		return "Điều khoản sử dụng"
	case PageSlugPrivacy:
		return "Chính sách bảo mật"
	}
	return ""
}
