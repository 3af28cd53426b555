package workflow

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/tenancy"
)

// listProjectsHandler returns the caller's projects.
// GET /api/v1/projects
func listProjectsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		rows, err := svc.ListProjects(r.Context(), id.UserID)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Project, len(rows))
		for i := range rows {
			out[i] = recordToProject(&rows[i].ProjectRecord, rows[i].Role)
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": out})
	}
}

// createProjectHandler creates a project owned by the caller.
// POST /api/v1/projects
func createProjectHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			StartDate   string `json:"startDate"`
			EndDate     string `json:"endDate"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		start, err := parseOptionalTime(body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		end, err := parseOptionalTime(body.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		id, _ := authz.IdentityFromContext(r.Context())
		project, err := svc.CreateProject(r.Context(), id.UserID, &ProjectRecord{
			Name:        body.Name,
			Description: strings.TrimSpace(body.Description),
			StartDate:   start,
			EndDate:     end,
		})
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToProject(project, authz.RoleAdmin))
	}
}

// getProjectHandler returns the project with the caller's role.
// GET /api/v1/projects/{projectID}
func getProjectHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := svc.GetProject(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		role, _ := authz.RoleFromContext(r.Context())
		writeJSON(w, http.StatusOK, recordToProject(project, role))
	}
}

// getMeHandler returns the caller's profile.
// GET /api/v1/me
func getMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := authz.IdentityFromContext(r.Context())
		user, err := svc.users.Get(r.Context(), id.UserID)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		if user == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, recordToUser(user))
	}
}

// updateMeHandler updates the caller's display name and organization.
// PATCH /api/v1/me
func updateMeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FullName     string `json:"fullName"`
			Organization string `json:"organization"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		id, _ := authz.IdentityFromContext(r.Context())
		user, err := svc.users.UpdateProfile(r.Context(), id.UserID, body.FullName, body.Organization)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToUser(user))
	}
}

// dashboardHandler returns the project overview for the caller.
// GET /api/v1/projects/{projectID}/dashboard
func dashboardHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := actorFromRequest(r)
		d, err := svc.Dashboard(r.Context(), tenancy.ProjectFromContext(r.Context()), actor.UserID)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboardToResponse(d))
	}
}

// listActivityHandler returns the project's activity log, newest first.
// GET /api/v1/projects/{projectID}/activity?assetId=...&pageSize=20&pageToken=...
func listActivityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := tenancy.ProjectFromContext(r.Context())
		pageSize := parsePageSize(r)
		pageToken := r.URL.Query().Get("pageToken")

		var (
			records []ActivityRecord
			next    string
			total   int
			err     error
		)
		if assetID := r.URL.Query().Get("assetId"); assetID != "" {
			if _, err := svc.GetAsset(r.Context(), projectID, actorFromRequest(r), assetID); err != nil {
				writeServiceError(w, svc.logger, err)
				return
			}
			records, next, total, err = svc.activity.ListByAsset(r.Context(), assetID, pageSize, pageToken)
		} else {
			records, next, total, err = svc.activity.ListByProject(r.Context(), projectID, pageSize, pageToken)
		}
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ActivityList{
			Entries:       recordsToActivity(records),
			NextPageToken: next,
			TotalSize:     total,
		})
	}
}

type assetBody struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ContentCategory ContentCategory `json:"contentCategory"`
	Platforms       []string        `json:"platforms"`
	Format          AssetFormat     `json:"format"`
	SourceStation   SourceStation   `json:"sourceStation"`
	ExternalURL     string          `json:"externalUrl"`
	ThumbnailURL    string          `json:"thumbnailUrl"`
	ApprovalDue     string          `json:"approvalDue"`
	PhaseID         string          `json:"phaseId"`
	AthleteIDs      []string        `json:"athleteIds"`
	ClubIDs         []string        `json:"clubIds"`
}

// createAssetHandler uploads a new draft asset.
// POST /api/v1/projects/{projectID}/assets
func createAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body assetBody
		if !decodeBody(w, r, &body) {
			return
		}
		due, err := parseOptionalTime(body.ApprovalDue)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid approvalDue")
			return
		}
		asset, err := svc.CreateAsset(r.Context(), tenancy.ProjectFromContext(r.Context()), actorFromRequest(r), AssetInput{
			Title:           body.Title,
			Description:     body.Description,
			ContentCategory: body.ContentCategory,
			Platforms:       body.Platforms,
			Format:          body.Format,
			SourceStation:   body.SourceStation,
			ExternalURL:     body.ExternalURL,
			ThumbnailURL:    body.ThumbnailURL,
			ApprovalDue:     due,
			PhaseID:         body.PhaseID,
			AthleteIDs:      body.AthleteIDs,
			ClubIDs:         body.ClubIDs,
		})
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToAsset(asset))
	}
}

// listAssetsHandler lists assets with filters.
// GET /api/v1/projects/{projectID}/assets?status=in_review,approved&category=...&phase=...&q=...&filterQuery=...
func listAssetsHandler(svc *Service, library bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		q := AssetQuery{
			Category:    ContentCategory(qs.Get("category")),
			PhaseID:     qs.Get("phase"),
			AthleteID:   qs.Get("athlete"),
			ClubID:      qs.Get("club"),
			Search:      qs.Get("q"),
			FilterQuery: qs.Get("filterQuery"),
			PageSize:    parsePageSize(r),
			PageToken:   qs.Get("pageToken"),
		}
		for _, v := range qs["status"] {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					q.Statuses = append(q.Statuses, AssetStatus(s))
				}
			}
		}

		projectID := tenancy.ProjectFromContext(r.Context())
		list := svc.ListAssets
		if library {
			list = svc.Library
		}
		records, next, total, err := list(r.Context(), projectID, actorFromRequest(r), q)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		assets := make([]Asset, len(records))
		for i := range records {
			assets[i] = recordToAsset(&records[i])
		}
		writeJSON(w, http.StatusOK, AssetList{Assets: assets, NextPageToken: next, TotalSize: total})
	}
}

// getAssetHandler returns an asset with approvals and comments.
// GET /api/v1/projects/{projectID}/assets/{assetID}
func getAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.GetAsset(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, detailToAsset(detail))
	}
}

// patchAssetHandler applies a partial update to an asset.
// PATCH /api/v1/projects/{projectID}/assets/{assetID}
func patchAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Title           *string          `json:"title"`
			Description     *string          `json:"description"`
			ContentCategory *ContentCategory `json:"contentCategory"`
			Platforms       []string         `json:"platforms"`
			Format          *AssetFormat     `json:"format"`
			SourceStation   *SourceStation   `json:"sourceStation"`
			ExternalURL     *string          `json:"externalUrl"`
			ThumbnailURL    *string          `json:"thumbnailUrl"`
			ApprovalDue     json.RawMessage  `json:"approvalDue"`
			PhaseID         *string          `json:"phaseId"`
			AthleteIDs      []string         `json:"athleteIds"`
			ClubIDs         []string         `json:"clubIds"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		patch := AssetPatch{
			Title:           body.Title,
			Description:     body.Description,
			ContentCategory: body.ContentCategory,
			Platforms:       body.Platforms,
			Format:          body.Format,
			SourceStation:   body.SourceStation,
			ExternalURL:     body.ExternalURL,
			ThumbnailURL:    body.ThumbnailURL,
			PhaseID:         body.PhaseID,
			AthleteIDs:      body.AthleteIDs,
			ClubIDs:         body.ClubIDs,
		}
		if len(body.ApprovalDue) > 0 {
			if string(body.ApprovalDue) == "null" {
				patch.ClearApprovalDue = true
			} else {
				var s string
				if err := json.Unmarshal(body.ApprovalDue, &s); err != nil {
					writeError(w, http.StatusBadRequest, "invalid approvalDue")
					return
				}
				due, err := parseOptionalTime(s)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid approvalDue")
					return
				}
				patch.ApprovalDue = due
				patch.ClearApprovalDue = due == nil
			}
		}

		asset, err := svc.UpdateAsset(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"), patch)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToAsset(asset))
	}
}

// deleteAssetHandler deletes an asset.
// DELETE /api/v1/projects/{projectID}/assets/{assetID}
func deleteAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteAsset(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// submitAssetHandler submits an asset for review.
// POST /api/v1/projects/{projectID}/assets/{assetID}/submit
func submitAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, records, err := svc.Submit(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r).UserID, chi.URLParam(r, "assetID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := recordToAsset(asset)
		out.Approvals = recordsToApprovals(records)
		writeJSON(w, http.StatusOK, out)
	}
}

// transitionAssetHandler performs an admin status change.
// POST /api/v1/projects/{projectID}/assets/{assetID}/status
func transitionAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status AssetStatus `json:"status"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		asset, err := svc.Transition(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r).UserID, chi.URLParam(r, "assetID"), body.Status)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToAsset(asset))
	}
}

// listAssetApprovalsHandler returns every approval record of an asset.
// GET /api/v1/projects/{projectID}/assets/{assetID}/approvals
func listAssetApprovalsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListApprovals(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"approvals": recordsToApprovals(records)})
	}
}

// pendingApprovalsHandler returns the caller's review queue.
// GET /api/v1/projects/{projectID}/approvals/pending
func pendingApprovalsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.PendingApprovals(r.Context(), tenancy.ProjectFromContext(r.Context()), actorFromRequest(r).UserID)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"approvals": pendingToApprovals(rows)})
	}
}

// decisionHandler records the caller's decision on an approval record.
// POST /api/v1/projects/{projectID}/approvals/{approvalID}/decision
func decisionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Decision ApprovalStatus `json:"decision"`
			Comment  string         `json:"comment"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		rec, asset, err := svc.Decide(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r).UserID, chi.URLParam(r, "approvalID"), body.Decision, strings.TrimSpace(body.Comment))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"approval": recordToApproval(rec),
			"asset":    recordToAsset(asset),
		})
	}
}

// listCommentsHandler returns an asset's comment thread.
// GET /api/v1/projects/{projectID}/assets/{assetID}/comments
func listCommentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := svc.ListComments(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": nodesToComments(nodes)})
	}
}

// addCommentHandler posts a comment or reply.
// POST /api/v1/projects/{projectID}/assets/{assetID}/comments
func addCommentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Body     string  `json:"body"`
			ParentID *string `json:"parentId"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		comment, err := svc.AddComment(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "assetID"), body.Body, body.ParentID)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToComment(comment))
	}
}

// deleteCommentHandler deletes a comment and its replies.
// DELETE /api/v1/projects/{projectID}/comments/{commentID}
func deleteCommentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.DeleteComment(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "commentID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listChainsHandler returns the project's approval chains.
// GET /api/v1/projects/{projectID}/chains
func listChainsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chains, err := svc.ListChains(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Chain, len(chains))
		for i := range chains {
			out[i] = recordToChain(&chains[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"chains": out})
	}
}

// putChainHandler creates or replaces the chain of a content category.
// PUT /api/v1/projects/{projectID}/chains
func putChainHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ContentCategory ContentCategory `json:"contentCategory"`
			RequiredRoles   []string        `json:"requiredRoles"`
			ChainType       ChainType       `json:"chainType"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		chain, err := svc.PutChain(r.Context(), tenancy.ProjectFromContext(r.Context()),
			body.ContentCategory, body.RequiredRoles, body.ChainType)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToChain(chain))
	}
}

// patchChainHandler changes a chain's type.
// PATCH /api/v1/projects/{projectID}/chains/{chainID}
func patchChainHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ChainType ChainType `json:"chainType"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		chain, err := svc.SetChainType(r.Context(), tenancy.ProjectFromContext(r.Context()),
			chi.URLParam(r, "chainID"), body.ChainType)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToChain(chain))
	}
}

// listMembersHandler returns the project's members.
// GET /api/v1/projects/{projectID}/members
func listMembersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListMembers(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Member, len(rows))
		for i := range rows {
			out[i] = rowToMember(&rows[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": out})
	}
}

// inviteMemberHandler invites a user by email.
// POST /api/v1/projects/{projectID}/members
func inviteMemberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email    string     `json:"email"`
			FullName string     `json:"fullName"`
			Role     authz.Role `json:"role"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		member, err := svc.InviteMember(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), body.Email, body.FullName, body.Role)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, rowToMember(member))
	}
}

// changeRoleHandler changes a member's role.
// PATCH /api/v1/projects/{projectID}/members/{memberID}
func changeRoleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Role authz.Role `json:"role"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		member, err := svc.ChangeRole(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "memberID"), body.Role)
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToMember(member))
	}
}

// removeMemberHandler removes a member.
// DELETE /api/v1/projects/{projectID}/members/{memberID}
func removeMemberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RemoveMember(r.Context(), tenancy.ProjectFromContext(r.Context()),
			actorFromRequest(r), chi.URLParam(r, "memberID"))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listPhasesHandler returns the project's phases.
// GET /api/v1/projects/{projectID}/phases
func listPhasesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phases, err := svc.ListPhases(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Phase, len(phases))
		for i := range phases {
			out[i] = recordToPhase(&phases[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"phases": out})
	}
}

// createPhaseHandler adds a phase.
// POST /api/v1/projects/{projectID}/phases
func createPhaseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name      string `json:"name"`
			StartDate string `json:"startDate"`
			EndDate   string `json:"endDate"`
			SortOrder int    `json:"sortOrder"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		start, err := parseOptionalTime(body.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate")
			return
		}
		end, err := parseOptionalTime(body.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate")
			return
		}
		phase, err := svc.CreatePhase(r.Context(), tenancy.ProjectFromContext(r.Context()), &PhaseRecord{
			Name:      body.Name,
			StartDate: start,
			EndDate:   end,
			SortOrder: body.SortOrder,
		})
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToPhase(phase))
	}
}

// listClubsHandler returns the project's clubs.
// GET /api/v1/projects/{projectID}/clubs
func listClubsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clubs, err := svc.ListClubs(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Club, len(clubs))
		for i := range clubs {
			out[i] = recordToClub(&clubs[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"clubs": out})
	}
}

// createClubHandler adds a club.
// POST /api/v1/projects/{projectID}/clubs
func createClubHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name   string `json:"name"`
			Market string `json:"market"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		club, err := svc.CreateClub(r.Context(), tenancy.ProjectFromContext(r.Context()), &ClubRecord{
			Name:   body.Name,
			Market: strings.TrimSpace(body.Market),
		})
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToClub(club))
	}
}

// listAthletesHandler returns the project's athletes.
// GET /api/v1/projects/{projectID}/athletes
func listAthletesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListAthletes(r.Context(), tenancy.ProjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		out := make([]Athlete, len(rows))
		for i := range rows {
			out[i] = rowToAthlete(&rows[i])
		}
		writeJSON(w, http.StatusOK, map[string]any{"athletes": out})
	}
}

// createAthleteHandler adds an athlete.
// POST /api/v1/projects/{projectID}/athletes
func createAthleteHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FullName     string  `json:"fullName"`
			ClubID       *string `json:"clubId"`
			HeadshotURL  string  `json:"headshotUrl"`
			EmbargoUntil string  `json:"embargoUntil"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		embargo, err := parseOptionalTime(body.EmbargoUntil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid embargoUntil")
			return
		}
		athlete, err := svc.CreateAthlete(r.Context(), tenancy.ProjectFromContext(r.Context()), &AthleteRecord{
			FullName:     body.FullName,
			ClubID:       body.ClubID,
			HeadshotURL:  strings.TrimSpace(body.HeadshotURL),
			EmbargoUntil: embargo,
		})
		if err != nil {
			writeServiceError(w, svc.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, rowToAthlete(&AthleteWithClub{AthleteRecord: *athlete}))
	}
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var te *TransitionError
	switch {
	case errors.As(err, &te):
		return http.StatusConflict
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoApproversFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyDecided), errors.Is(err, ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err with its mapped status. Internal failures
// are logged and their details withheld from the response.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		writeError(w, status, ErrPersistence.Error())
		return
	}
	var te *TransitionError
	if errors.As(err, &te) {
		writeJSON(w, status, map[string]string{"error": te.Message, "code": te.Code})
		return
	}
	writeError(w, status, userMessage(err))
}

// userMessage returns the message of the outermost sentinel-bearing error.
func userMessage(err error) string {
	for _, sentinel := range []error{ErrNotConfigured, ErrNoApproversFound, ErrNotAuthorized, ErrAlreadyDecided, ErrAlreadyMember} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, ErrInvalidInput) {
		return strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
	}
	return err.Error()
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func actorFromRequest(r *http.Request) Actor {
	id, _ := authz.IdentityFromContext(r.Context())
	role, _ := authz.RoleFromContext(r.Context())
	return Actor{UserID: id.UserID, Role: role}
}

func parsePageSize(r *http.Request) int {
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			return v
		}
	}
	return 20
}

// parseOptionalTime accepts RFC3339 timestamps or YYYY-MM-DD dates.
func parseOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
