// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/waffle/pantry/storage"
)

// NavItem is one entry of the header menu.
type NavItem struct {
	Label  string
	URL    string
	Active bool
}

// BaseVM contains common fields for all storefront view models.
// Embed it in feature view models:
//
//	type tourData struct {
//	    viewdata.BaseVM
//	    Tour viewdata.TourCard
//	}
type BaseVM struct {
	SiteName   string
	LogoURL    string
	FaviconURL string
	PhoneText  string
	// PhoneURL is a tel: link built only from digits and "+". html/template
	// rejects the tel: scheme in href unless it is marked safe.
	PhoneURL   template.URL
	ZaloURL    string
	Email      string

	Title       string
	Description string
	CurrentPath string
	Nav         []NavItem
	Year        int

	// Draft is true while the viewer has preview mode on. Pages rendered
	// in draft mode are never cached, so the banner never leaks.
	Draft bool
	// ExitPreviewURL leaves preview mode and returns to the current page.
	ExitPreviewURL string

	// Degraded marks pages built from fallback data.
	Degraded bool
}

// storageProvider resolves media paths that are not absolute URLs.
var storageProvider storage.Store

// Init sets the storage provider used by MediaURL. Call once at startup.
func Init(store storage.Store) {
	storageProvider = store
}

var navItems = []NavItem{
	{Label: "Trang chủ", URL: "/"},
	{Label: "Tour", URL: "/tours"},
	{Label: "Danh mục", URL: "/categories"},
	{Label: "Giới thiệu", URL: "/" + models.PageSlugAbout},
	{Label: "Liên hệ", URL: "/" + models.PageSlugContact},
}

// New creates a BaseVM from the request and the site settings.
func New(r *http.Request, settings models.SiteSettings, title string) BaseVM {
	current := httpnav.CurrentPath(r)
	vm := BaseVM{
		SiteName:    settings.SiteName,
		PhoneText:   settings.PhoneNumber,
		PhoneURL:    template.URL(settings.PhoneURL()),
		ZaloURL:     settings.ZaloURL(),
		Email:       settings.Email,
		Title:       title,
		CurrentPath: current,
		Nav:         nav(current),
		Year:        time.Now().Year(),
		Draft:       draftmode.Enabled(r.Context()),
	}
	if vm.SiteName == "" {
		vm.SiteName = models.DefaultSiteName
	}
	if settings.HasLogo() {
		vm.LogoURL = MediaURL(settings.Logo)
	}
	vm.FaviconURL = MediaURL(settings.Favicon)
	if vm.Draft {
		vm.ExitPreviewURL = "/api/preview/exit?redirect=" + current
	}
	return vm
}

// PageTitle returns "title | site", or the site name alone.
func (vm BaseVM) PageTitle() string {
	if vm.Title == "" || vm.Title == vm.SiteName {
		return vm.SiteName
	}
	return vm.Title + " | " + vm.SiteName
}

func nav(current string) []NavItem {
	out := make([]NavItem, len(navItems))
	for i, item := range navItems {
		item.Active = current == item.URL ||
			(item.URL != "/" && strings.HasPrefix(current, item.URL+"/")) ||
			(item.URL == "/tours" && strings.HasPrefix(current, "/tour/")) ||
			(item.URL == "/categories" && strings.HasPrefix(current, "/category/"))
		out[i] = item
	}
	return out
}

// MediaURL resolves a media reference. Absolute URLs pass through; other
// values are storage paths resolved by the configured provider.
func MediaURL(m *models.Media) string {
	if m == nil || m.URL == "" {
		return ""
	}
	u := m.URL
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") {
		return u
	}
	if storageProvider != nil {
		return storageProvider.URL(strings.TrimPrefix(u, "/"))
	}
	return u
}

// FormatPrice renders an amount in đồng with dot thousands separators,
// e.g. 2890000 -> "2.890.000₫".
func FormatPrice(v float64) string {
	if v <= 0 {
		return "Liên hệ"
	}
	s := strconv.FormatInt(int64(v+0.5), 10)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	b.WriteString("₫")
	return b.String()
}
