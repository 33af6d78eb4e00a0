// internal/domain/models/sitesettings.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SiteSettings holds site-wide branding and contact channels.
// There is exactly one settings document per site.
type SiteSettings struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`

	// Branding
	SiteName string `bson:"site_name" json:"siteName"`
	Logo     *Media `bson:"logo,omitempty" json:"logo,omitempty"`
	Favicon  *Media `bson:"favicon,omitempty" json:"favicon,omitempty"`

	// Contact channels used by the booking buttons
	PhoneNumber string `bson:"phone_number,omitempty" json:"phoneNumber,omitempty"`
	ZaloNumber  string `bson:"zalo_number,omitempty" json:"zaloNumber,omitempty"`
	Email       string `bson:"email,omitempty" json:"email,omitempty"`

	// Home page carousel, shown in order
	Banners []BannerSlide `bson:"banners,omitempty" json:"banners,omitempty"`

	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// BannerSlide is one slide of the home page carousel.
type BannerSlide struct {
	Image    *Media `bson:"image,omitempty" json:"image,omitempty"`
	Title    string `bson:"title,omitempty" json:"title,omitempty"`
	Subtitle string `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	LinkURL  string `bson:"link_url,omitempty" json:"linkUrl,omitempty"`
	LinkText string `bson:"link_text,omitempty" json:"linkText,omitempty"`
}

// HasLogo returns true if a logo has been uploaded.
func (s *SiteSettings) HasLogo() bool {
	return s.Logo != nil && s.Logo.URL != ""
}

// ZaloURL returns the chat link used for bookings, or "" when no number is set.
func (s *SiteSettings) ZaloURL() string {
	d := digits(s.ZaloNumber)
	if d == "" {
		return ""
	}
	return "https://zalo.me/" + d
}

// PhoneURL returns a tel: link for the hotline, or "".
func (s *SiteSettings) PhoneURL() string {
	d := digits(s.PhoneNumber)
	if d == "" {
		return ""
	}
	if strings.HasPrefix(strings.TrimSpace(s.PhoneNumber), "+") {
		return "tel:+" + d
	}
	return "tel:" + d
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultSiteName is the default site name used when settings don't exist.
const DefaultSiteName = "Strata Travel"

// DefaultSiteSettings is served when the CMS has no settings document or
// cannot be reached.
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		SiteName:    DefaultSiteName,
		PhoneNumber: "1900 0000",
		Email:       "hello@example.com",
		Banners: []BannerSlide{{
			Title:    "Khám phá Việt Nam",
			Subtitle: "Tour trọn gói, khởi hành hằng tuần",
			LinkURL:  "/tours",
			LinkText: "Xem tour",
		}},
	}
}
