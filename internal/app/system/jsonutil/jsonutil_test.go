package jsonutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		data     any
		wantBody string
	}{
		{"object", http.StatusOK, map[string]string{"message": "hello"}, `{"message":"hello"}`},
		{"created", http.StatusCreated, map[string]int{"id": 123}, `{"id":123}`},
		{"nil data", http.StatusOK, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSON(rec, tt.status, tt.data)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestCollection(t *testing.T) {
	rec := httptest.NewRecorder()
	Collection(rec, []string{"a", "b"}, Pagination{Page: 2, PageSize: 2, PageCount: 3, Total: 5})

	var got RawEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got.Data) != `["a","b"]` {
		t.Errorf("data = %s", got.Data)
	}
	if got.Meta.Pagination == nil || got.Meta.Pagination.Total != 5 || got.Meta.Pagination.Page != 2 {
		t.Errorf("pagination = %+v", got.Meta.Pagination)
	}
}

func TestData_OmitsPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusOK, map[string]string{"slug": "ha-long"})

	body := strings.TrimSpace(rec.Body.String())
	want := `{"data":{"slug":"ha-long"},"meta":{}}`
	if body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "x") }, http.StatusBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "x") }, http.StatusUnauthorized},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "x") }, http.StatusNotFound},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "x") }, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"x"}` {
				t.Errorf("body = %s", body)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, map[string]string{"price": "must be >= 0"})

	var got struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Fields["price"] != "must be >= 0" {
		t.Errorf("fields = %v", got.Fields)
	}
}

func TestDecodeData(t *testing.T) {
	type tour struct {
		Title string  `json:"title"`
		Price float64 `json:"price"`
	}

	req := httptest.NewRequest("POST", "/api/tours", strings.NewReader(`{"data":{"title":"Sapa","price":1200000}}`))
	var got tour
	if err := DecodeData(req, &got); err != nil {
		t.Fatalf("DecodeData() error = %v", err)
	}
	if got.Title != "Sapa" || got.Price != 1200000 {
		t.Errorf("got %+v", got)
	}

	for _, body := range []string{`{}`, `{"data":null}`, `not json`} {
		req := httptest.NewRequest("POST", "/api/tours", strings.NewReader(body))
		if err := DecodeData(req, &got); err == nil {
			t.Errorf("DecodeData(%s) should fail", body)
		}
	}
}

func TestDecode_TooLarge(t *testing.T) {
	big := `{"title":"` + strings.Repeat("a", MaxBodyBytes+10) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(big))
	var v map[string]string
	if err := Decode(req, &v); err == nil {
		t.Error("Decode() should reject oversized bodies")
	}
}
