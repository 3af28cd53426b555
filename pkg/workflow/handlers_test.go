package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/partnershiphub/hub/pkg/authz"
)

type apiClient struct {
	t      testingT
	router http.Handler
}

func newAPIClient(f *fixture) *apiClient {
	return &apiClient{t: f.t, router: NewRouter(f.svc, authz.HeaderIdentityMiddleware())}
}

func (c *apiClient) do(method, path, userID string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(authz.UserIDHeader, userID)
	}
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestAPI_SubmitAndDecide(t *testing.T) {
	f := newFixture(t)
	f.chain(CategoryPartnership, "brand", "league")
	brand := f.member("brand@example.com", authz.RoleBrand)
	league := f.member("league@example.com", authz.RoleLeague)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID

	rr := api.do(http.MethodPost, base+"/assets", f.admin, map[string]any{
		"title":           "Derby day",
		"contentCategory": "partnership",
		"platforms":       []string{"instagram"},
		"approvalDue":     "2026-11-01",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeJSON[Asset](t, rr)
	assert.Equal(t, AssetDraft, created.Status)
	assert.Equal(t, "2026-11-01T00:00:00Z", created.ApprovalDue)

	rr = api.do(http.MethodPost, base+"/assets/"+created.ID+"/submit", f.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	submitted := decodeJSON[Asset](t, rr)
	assert.Equal(t, AssetInReview, submitted.Status)
	require.Len(t, submitted.Approvals, 2)

	rr = api.do(http.MethodGet, base+"/approvals/pending", brand, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	queue := decodeJSON[struct {
		Approvals []Approval `json:"approvals"`
	}](t, rr)
	require.Len(t, queue.Approvals, 1)
	assert.Equal(t, "Derby day", queue.Approvals[0].AssetTitle)
	brandApproval := queue.Approvals[0].ID

	// Someone else's record is refused and left untouched.
	rr = api.do(http.MethodPost, base+"/approvals/"+brandApproval+"/decision", league,
		map[string]string{"decision": "rejected"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(http.MethodPost, base+"/approvals/"+brandApproval+"/decision", brand,
		map[string]string{"decision": "approved", "comment": "  great  "})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decided := decodeJSON[struct {
		Approval Approval `json:"approval"`
		Asset    Asset    `json:"asset"`
	}](t, rr)
	assert.Equal(t, ApprovalApproved, decided.Approval.Status)
	assert.Equal(t, "great", decided.Approval.Comment)
	assert.Equal(t, AssetInReview, decided.Asset.Status)

	rr = api.do(http.MethodPost, base+"/approvals/"+brandApproval+"/decision", brand,
		map[string]string{"decision": "rejected"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.do(http.MethodGet, base+"/assets/"+created.ID+"/approvals", league, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeJSON[struct {
		Approvals []Approval `json:"approvals"`
	}](t, rr)
	assert.Len(t, history.Approvals, 2)
}

func TestAPI_DecisionByRoleWithoutApprovePermission(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID

	rr := api.do(http.MethodPut, base+"/chains", f.admin, map[string]any{"contentCategory": "hype", "requiredRoles": []string{"club"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	club := f.member("club@example.com", authz.RoleClub)
	viewer := f.member("viewer@example.com", authz.RoleViewer)
	asset := f.draft("Matchday hype", CategoryHype)

	rr = api.do(http.MethodPost, base+"/assets/"+asset.ID+"/submit", f.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	active, err := f.svc.approvals.ListActive(f.ctx, asset.ID, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, club, active[0].UserID)

	rr = api.do(http.MethodPost, base+"/approvals/"+active[0].ID+"/decision", viewer,
		map[string]string{"decision": "approved"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = api.do(http.MethodPost, base+"/approvals/"+active[0].ID+"/decision", club,
		map[string]string{"decision": "approved"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, AssetApproved, f.asset(asset.ID).Status)

	rr = api.do(http.MethodGet, base+"/assets/"+asset.ID, club, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []AssetStatus{AssetPublished, AssetArchived}, decodeJSON[Asset](t, rr).AllowedTransitions)
}

func TestAPI_SubmitErrors(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID

	noChain := f.draft("No chain", CategoryTrust)
	rr := api.do(http.MethodPost, base+"/assets/"+noChain.ID+"/submit", f.admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, ErrNotConfigured.Error(), decodeJSON[map[string]string](t, rr)["error"])

	f.chain(CategoryHype, "league")
	noApprovers := f.draft("No approvers", CategoryHype)
	rr = api.do(http.MethodPost, base+"/assets/"+noApprovers.ID+"/submit", f.admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, ErrNoApproversFound.Error(), decodeJSON[map[string]string](t, rr)["error"])

	rr = api.do(http.MethodPost, base+"/assets/"+noApprovers.ID+"/status", f.admin, map[string]string{"status": "published"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, CodeTransitionDenied, decodeJSON[map[string]string](t, rr)["code"])

	rr = api.do(http.MethodPost, base+"/assets/missing/submit", f.admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAPI_Permissions(t *testing.T) {
	f := newFixture(t)
	viewer := f.member("viewer@example.com", authz.RoleViewer)
	outsider := f.user("outsider@example.com", "")
	api := newAPIClient(f)
	base := "/projects/" + f.projectID
	asset := f.draft("Gated", CategoryPR)

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"anonymous", http.MethodGet, base + "/assets", "", nil, http.StatusUnauthorized},
		{"non member", http.MethodGet, base + "/assets", outsider, nil, http.StatusForbidden},
		{"invalid project id", http.MethodGet, "/projects/not-a-uuid/assets", f.admin, nil, http.StatusBadRequest},
		{"viewer cannot upload", http.MethodPost, base + "/assets", viewer, map[string]string{"title": "x", "contentCategory": "pr"}, http.StatusForbidden},
		{"viewer cannot comment", http.MethodPost, base + "/assets/" + asset.ID + "/comments", viewer, map[string]string{"body": "hi"}, http.StatusForbidden},
		{"viewer cannot manage chains", http.MethodPut, base + "/chains", viewer, map[string]any{"contentCategory": "pr", "requiredRoles": []string{"brand"}}, http.StatusForbidden},
		{"viewer cannot see queue", http.MethodGet, base + "/approvals/pending", viewer, nil, http.StatusForbidden},
		{"viewer cannot see hidden asset", http.MethodGet, base + "/assets/" + asset.ID, viewer, nil, http.StatusNotFound},
		{"viewer lists members", http.MethodGet, base + "/members", viewer, nil, http.StatusOK},
		{"admin manages chains", http.MethodPut, base + "/chains", f.admin, map[string]any{"contentCategory": "pr", "requiredRoles": []string{"brand"}}, http.StatusOK},
		{"malformed body", http.MethodPost, base + "/assets", f.admin, "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestAPI_ListAssetsQuery(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID
	f.draft("Alpha", CategoryHype)
	f.draft("Beta", CategoryPR)

	rr := api.do(http.MethodGet, base+"/assets?category=pr", f.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeJSON[AssetList](t, rr)
	assert.Equal(t, 1, list.TotalSize)
	assert.Equal(t, "Beta", list.Assets[0].Title)

	rr = api.do(http.MethodGet, base+"/assets?filterQuery="+url.QueryEscape("title LIKE '%lph%'"), f.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list = decodeJSON[AssetList](t, rr)
	require.Len(t, list.Assets, 1)
	assert.Equal(t, "Alpha", list.Assets[0].Title)

	rr = api.do(http.MethodGet, base+"/assets?status=bogus", f.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(http.MethodGet, base+"/library", f.admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, decodeJSON[AssetList](t, rr).TotalSize)
}

func TestAPI_PatchAssetClearsDueDate(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID

	rr := api.do(http.MethodPost, base+"/assets", f.admin, map[string]any{
		"title": "Dated", "contentCategory": "hype", "approvalDue": "2026-12-24T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decodeJSON[Asset](t, rr)

	req := httptest.NewRequest(http.MethodPatch, base+"/assets/"+created.ID, bytes.NewBufferString(`{"approvalDue": null, "title": "Undated"}`))
	req.Header.Set(authz.UserIDHeader, f.admin)
	out := httptest.NewRecorder()
	api.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code, out.Body.String())
	patched := decodeJSON[Asset](t, out)
	assert.Equal(t, "Undated", patched.Title)
	assert.Empty(t, patched.ApprovalDue)
}

func TestAPI_ProjectsAndProfile(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)

	// First sight of a new identity with an email creates its profile.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(authz.UserIDHeader, "sub-new")
	req.Header.Set(authz.UserEmailHeader, "fresh@example.com")
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	me := decodeJSON[User](t, rr)
	assert.Equal(t, "fresh@example.com", me.Email)

	rr = api.do(http.MethodPost, "/projects", "sub-new", map[string]string{"name": "Cup Run", "startDate": "2026-01-01"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	project := decodeJSON[Project](t, rr)
	assert.Equal(t, authz.RoleAdmin, project.Role)

	rr = api.do(http.MethodGet, "/projects", "sub-new", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	projects := decodeJSON[struct {
		Projects []Project `json:"projects"`
	}](t, rr)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, "Cup Run", projects.Projects[0].Name)

	rr = api.do(http.MethodPost, "/projects", "sub-new", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAPI_Members(t *testing.T) {
	f := newFixture(t)
	api := newAPIClient(f)
	base := "/projects/" + f.projectID

	rr := api.do(http.MethodPost, base+"/members", f.admin, map[string]string{"email": "pa@example.com", "role": "pa"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	member := decodeJSON[Member](t, rr)
	assert.Equal(t, authz.RolePA, member.Role)
	assert.Equal(t, "pa@example.com", member.Email)
	assert.NotEmpty(t, member.UserID)

	rr = api.do(http.MethodPost, base+"/members", f.admin, map[string]string{"email": "pa@example.com", "role": "brand"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, ErrAlreadyMember.Error(), decodeJSON[map[string]string](t, rr)["error"])

	rr = api.do(http.MethodPatch, base+"/members/"+member.ID, f.admin, map[string]string{"role": "club"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, authz.RoleClub, decodeJSON[Member](t, rr).Role)

	rr = api.do(http.MethodDelete, base+"/members/"+member.ID, f.admin, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&TransitionError{Code: CodeSubmitNotAllowed}, http.StatusConflict},
		{fmt.Errorf("%w: hype", ErrNotConfigured), http.StatusUnprocessableEntity},
		{ErrNoApproversFound, http.StatusUnprocessableEntity},
		{ErrNotAuthorized, http.StatusForbidden},
		{persistenceError("get asset", errors.New("connection reset")), http.StatusInternalServerError},
		{notFound("asset"), http.StatusNotFound},
		{ErrAlreadyDecided, http.StatusConflict},
		{invalidInput("bad %s", "thing"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestWriteServiceError_HidesPersistenceDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, zap.NewNop(), persistenceError("get asset", errors.New("password authentication failed")))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.Equal(t, "persistence failure", decodeJSON[map[string]string](t, rr)["error"])

	rr = httptest.NewRecorder()
	writeServiceError(rr, zap.NewNop(), invalidInput("title is required"))
	assert.Equal(t, "title is required", decodeJSON[map[string]string](t, rr)["error"])
}
