package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{"bad request", http.StatusBadRequest, "invalid_request", "Invalid request body"},
		{"not found", http.StatusNotFound, "no_dataset", "No dataset available"},
		{"internal error", http.StatusInternalServerError, "query_failed", "Failed to run the query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			if err := ErrorResponse(w, tt.statusCode, tt.errorCode, tt.message); err != nil {
				t.Fatalf("ErrorResponse returned error: %v", err)
			}

			if w.Code != tt.statusCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.statusCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}

			var body APIError
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Error != tt.errorCode || body.Message != tt.message {
				t.Errorf("body = %+v, want %s/%s", body, tt.errorCode, tt.message)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, http.StatusCreated, map[string]int{"rows": 3}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if strings.TrimSpace(w.Body.String()) != `{"rows":3}` {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Message string `json:"message"`
	}

	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr bool
		tooBig  bool
	}{
		{"valid", `{"message":"hi","extra":1}`, 1024, false, false},
		{"malformed", `{"message":`, 1024, true, false},
		{"trailing data", `{"message":"a"} {"message":"b"}`, 1024, true, false},
		{"too large", `{"message":"` + strings.Repeat("x", 64) + `"}`, 16, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var p payload
			err := DecodeJSON(w, r, &p, tt.limit)

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.tooBig && err != errBodyTooLarge {
				t.Errorf("expected errBodyTooLarge, got %v", err)
			}
			if !tt.wantErr && p.Message != "hi" {
				t.Errorf("message = %q", p.Message)
			}
		})
	}
}
