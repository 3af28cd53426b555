package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/partnershiphub/hub/pkg/tenancy"
)

const testProject = "0b8f4c0e-8d7e-4a8b-9a61-5b1f4f1f1a01"

// mapLookup resolves roles from a fixed map keyed by "project/user".
type mapLookup struct {
	roles map[string]Role
	err   error
	calls int
}

func (m *mapLookup) RoleOf(_ context.Context, projectID, userID string) (Role, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	role, ok := m.roles[projectID+"/"+userID]
	if !ok {
		return "", fmt.Errorf("lookup %s: %w", userID, ErrNotMember)
	}
	return role, nil
}

func memberRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := tenancy.WithTenant(req.Context(), tenancy.TenantContext{ProjectID: testProject})
	if userID != "" {
		ctx = WithIdentity(ctx, Identity{UserID: userID})
	}
	return req.WithContext(ctx)
}

func TestRequireMember(t *testing.T) {
	lookup := &mapLookup{roles: map[string]Role{
		testProject + "/admin-user": RoleAdmin,
		testProject + "/club-user":  RoleClub,
	}}

	tests := []struct {
		name       string
		userID     string
		wantStatus int
		wantRole   Role
	}{
		{name: "admin member", userID: "admin-user", wantStatus: http.StatusOK, wantRole: RoleAdmin},
		{name: "club member", userID: "club-user", wantStatus: http.StatusOK, wantRole: RoleClub},
		{name: "not a member", userID: "stranger", wantStatus: http.StatusForbidden},
		{name: "no identity", userID: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured Role
			handler := RequireMember(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured, _ = RoleFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, memberRequest(tt.userID))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && captured != tt.wantRole {
				t.Errorf("role = %q, want %q", captured, tt.wantRole)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body["error"] != "forbidden" {
					t.Errorf("error = %q, want %q", body["error"], "forbidden")
				}
			}
		})
	}
}

func TestRequireMember_LooksUpEveryRequest(t *testing.T) {
	lookup := &mapLookup{roles: map[string]Role{testProject + "/u": RoleBrand}}
	handler := RequireMember(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), memberRequest("u"))
	}
	if lookup.calls != 3 {
		t.Errorf("lookup calls = %d, want 3", lookup.calls)
	}
}

func TestRequireMember_LookupFailure(t *testing.T) {
	lookup := &mapLookup{err: errors.New("connection refused")}
	handler := RequireMember(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, memberRequest("u"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		perm       Permission
		wantStatus int
	}{
		{"admin manages settings", RoleAdmin, PermManageSettings, http.StatusOK},
		{"brand approves", RoleBrand, PermApprove, http.StatusOK},
		{"brand cannot upload", RoleBrand, PermUpload, http.StatusForbidden},
		{"pa views queue", RolePA, PermViewQueue, http.StatusOK},
		{"pa cannot view all assets", RolePA, PermViewAllAssets, http.StatusForbidden},
		{"club cannot comment", RoleClub, PermComment, http.StatusForbidden},
		{"viewer cannot approve", RoleViewer, PermApprove, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequirePermission(tt.perm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req = req.WithContext(WithRole(req.Context(), tt.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequirePermission_NoRole(t *testing.T) {
	handler := RequirePermission(PermComment)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
