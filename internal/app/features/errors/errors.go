// internal/app/features/errors/errors.go
package errors

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// SettingsFunc supplies the site settings for the page chrome. It must
// never fail; callers fall back to defaults themselves.
type SettingsFunc func(ctx context.Context) models.SiteSettings

type errorVM struct {
	viewdata.BaseVM
	Heading string
	Message string
	Code    int
}

// Handler renders the storefront error pages.
type Handler struct {
	settings SettingsFunc
}

// NewHandler creates a new error Handler. A nil settings func renders the
// chrome from the default settings.
func NewHandler(settings SettingsFunc) *Handler {
	if settings == nil {
		settings = func(context.Context) models.SiteSettings { return models.DefaultSiteSettings() }
	}
	return &Handler{settings: settings}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, code int, title, heading, msg string) {
	// error pages never enter the render cache
	rendercache.MarkUncacheable(r.Context())

	vm := errorVM{
		BaseVM:  viewdata.New(r, h.settings(r.Context()), title),
		Heading: heading,
		Message: msg,
		Code:    code,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	templates.Render(w, r, "errors/error", vm)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Không tìm thấy trang",
		"Không tìm thấy trang",
		"Trang bạn tìm không tồn tại hoặc đã được gỡ xuống.")
}

// Unavailable renders the 503 page shown when content cannot be loaded
// and no fallback exists.
func (h *Handler) Unavailable(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "30")
	h.render(w, r, http.StatusServiceUnavailable, "Tạm thời gián đoạn",
		"Hệ thống đang bận",
		"Chúng tôi không tải được nội dung lúc này. Vui lòng thử lại sau ít phút.")
}

// InternalError renders the 500 page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, "Lỗi máy chủ",
		"Đã xảy ra lỗi",
		"Xin lỗi, đã có sự cố khi hiển thị trang này.")
}

// MethodNotAllowed renders the 405 page.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, "Không được phép",
		"Phương thức không được hỗ trợ",
		"Yêu cầu này không được hỗ trợ cho địa chỉ đã chọn.")
}
