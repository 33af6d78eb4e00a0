// Package jsonutil writes the JSON bodies shared by the content API and
// the storefront gateways.
//
// Content API responses use the {data, meta} envelope; gateway responses
// are flat objects. Errors are always {"error": message}.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// Pagination is the meta block of a collection response.
type Pagination struct {
	Page      int64 `json:"page"`
	PageSize  int64 `json:"pageSize"`
	PageCount int64 `json:"pageCount"`
	Total     int64 `json:"total"`
}

// Meta accompanies every enveloped response.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Envelope is the content API response shape.
type Envelope struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// RawEnvelope is Envelope with data left undecoded, for clients that
// pick the target type after reading meta.
type RawEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta Meta            `json:"meta"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Data writes a single-entry envelope.
func Data(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Data: data})
}

// Collection writes a list envelope with pagination meta.
//
//	jsonutil.Collection(w, tours, jsonutil.Pagination{Page: 1, PageSize: 25, PageCount: 1, Total: 3})
func Collection(w http.ResponseWriter, data any, p Pagination) {
	JSON(w, http.StatusOK, Envelope{Data: data, Meta: Meta{Pagination: &p}})
}

// NoContent writes a 204 with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes {"error": message} with the given status code.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError writes a 500. Log the cause separately; message is shown
// to the caller.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// ValidationError writes a 400 with field-level errors.
//
//	jsonutil.ValidationError(w, map[string]string{"price": "must be >= 0"})
func ValidationError(w http.ResponseWriter, fields map[string]string) {
	JSON(w, http.StatusBadRequest, map[string]any{
		"error":  "validation failed",
		"fields": fields,
	})
}

// Decode reads one JSON value from the request body into v. Bodies over
// MaxBodyBytes are rejected.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("request body truncated or too large: %w", err)
		}
		return err
	}
	return nil
}

// DecodeData reads a {"data": {...}} write body into v.
func DecodeData(r *http.Request, v any) error {
	var in struct {
		Data json.RawMessage `json:"data"`
	}
	if err := Decode(r, &in); err != nil {
		return err
	}
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return errors.New(`request body must be {"data": {...}}`)
	}
	return json.Unmarshal(in.Data, v)
}
