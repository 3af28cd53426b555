package tenancy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantID     string
	}{
		{
			name:       "valid project in path",
			url:        "/projects/" + testProjectID + "/assets",
			wantStatus: http.StatusOK,
			wantID:     testProjectID,
		},
		{
			name:       "invalid project in path -> 400",
			url:        "/projects/not-a-uuid/assets",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedID string
			r := chi.NewRouter()
			r.Route("/projects/{projectID}", func(r chi.Router) {
				r.Use(NewMiddleware())
				r.Get("/assets", func(w http.ResponseWriter, r *http.Request) {
					capturedID = ProjectFromContext(r.Context())
					w.WriteHeader(http.StatusOK)
				})
			})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantStatus == http.StatusOK && capturedID != tt.wantID {
				t.Errorf("project in context = %q, want %q", capturedID, tt.wantID)
			}

			if tt.wantStatus == http.StatusBadRequest {
				var errBody map[string]string
				if err := json.NewDecoder(w.Body).Decode(&errBody); err != nil {
					t.Fatalf("failed to decode error body: %v", err)
				}
				if errBody["error"] != "bad_request" {
					t.Errorf("error field = %q, want %q", errBody["error"], "bad_request")
				}
				if errBody["message"] == "" {
					t.Error("expected non-empty message in error response")
				}
				if ct := w.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want %q", ct, "application/json")
				}
			}
		})
	}
}

func TestMiddleware_HeaderFallback(t *testing.T) {
	handler := NewMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := ProjectFromContext(r.Context()); got != testProjectID {
			t.Errorf("expected project %q, got %q", testProjectID, got)
		}
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	r.Header.Set(ProjectHeader, testProjectID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
