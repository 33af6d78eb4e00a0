package contentapi

import (
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		h.storeError(w, r, "failed to load site settings", err)
		return
	}
	jsonutil.Data(w, http.StatusOK, s)
}

// saveSettings replaces the settings singleton. Every page shows the
// header and footer, so the whole rendered site is dropped by tag.
func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var in models.SiteSettings
	if err := jsonutil.DecodeData(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	in.SiteName = normalize.Name(htmlsanitize.StripTags(in.SiteName))
	if in.SiteName == "" {
		in.SiteName = models.DefaultSiteName
	}
	in.Email = normalize.Email(in.Email)
	for i := range in.Banners {
		in.Banners[i].Title = htmlsanitize.StripTags(in.Banners[i].Title)
		in.Banners[i].Subtitle = htmlsanitize.StripTags(in.Banners[i].Subtitle)
		in.Banners[i].LinkText = htmlsanitize.StripTags(in.Banners[i].LinkText)
	}

	saved, err := h.settings.Save(r.Context(), in)
	if err != nil {
		h.storeError(w, r, "failed to save site settings", err)
		return
	}
	h.notify(r.Context(), lifecycle.Event{Tag: content.TagContent})
	jsonutil.Data(w, http.StatusOK, saved)
}
