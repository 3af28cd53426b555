package workflow

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/tenancy"
)

// NewRouter creates a chi router with the workflow API routes. identity
// authenticates every request; project routes additionally require
// membership, and mutating routes require the matching role permission.
// observe middleware runs once the caller is known and again once the
// project is resolved.
func NewRouter(svc *Service, identity func(http.Handler) http.Handler, observe ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(identity)
	r.Use(observe...)
	r.Use(ensureProfile(svc))

	r.Get("/me", getMeHandler(svc))
	r.Patch("/me", updateMeHandler(svc))

	r.Get("/projects", listProjectsHandler(svc))
	r.Post("/projects", createProjectHandler(svc))

	r.Route("/projects/{"+tenancy.ProjectURLParam+"}", func(r chi.Router) {
		r.Use(tenancy.NewMiddleware())
		r.Use(observe...)
		r.Use(authz.RequireMember(svc.members))

		manage := authz.RequirePermission(authz.PermManageSettings)

		r.Get("/", getProjectHandler(svc))
		r.Get("/dashboard", dashboardHandler(svc))
		r.Get("/activity", listActivityHandler(svc))

		r.Get("/phases", listPhasesHandler(svc))
		r.With(manage).Post("/phases", createPhaseHandler(svc))
		r.Get("/clubs", listClubsHandler(svc))
		r.With(manage).Post("/clubs", createClubHandler(svc))
		r.Get("/athletes", listAthletesHandler(svc))
		r.With(manage).Post("/athletes", createAthleteHandler(svc))

		r.Get("/library", listAssetsHandler(svc, true))
		r.Route("/assets", func(r chi.Router) {
			r.Get("/", listAssetsHandler(svc, false))
			r.With(authz.RequirePermission(authz.PermUpload)).Post("/", createAssetHandler(svc))

			r.Route("/{assetID}", func(r chi.Router) {
				r.Get("/", getAssetHandler(svc))
				r.Patch("/", patchAssetHandler(svc))
				r.With(manage).Delete("/", deleteAssetHandler(svc))
				r.With(authz.RequirePermission(authz.PermUpload)).Post("/submit", submitAssetHandler(svc))
				r.With(manage).Post("/status", transitionAssetHandler(svc))
				r.Get("/approvals", listAssetApprovalsHandler(svc))
				r.Get("/comments", listCommentsHandler(svc))
				r.With(authz.RequirePermission(authz.PermComment)).Post("/comments", addCommentHandler(svc))
			})
		})
		r.Delete("/comments/{commentID}", deleteCommentHandler(svc))

		r.With(authz.RequirePermission(authz.PermViewQueue)).Get("/approvals/pending", pendingApprovalsHandler(svc))
		// Ownership of the record is the only check on a decision.
		r.Post("/approvals/{approvalID}/decision", decisionHandler(svc))

		r.Get("/chains", listChainsHandler(svc))
		r.With(manage).Put("/chains", putChainHandler(svc))
		r.With(manage).Patch("/chains/{chainID}", patchChainHandler(svc))

		r.Get("/members", listMembersHandler(svc))
		r.With(manage).Post("/members", inviteMemberHandler(svc))
		r.With(manage).Patch("/members/{memberID}", changeRoleHandler(svc))
		r.With(manage).Delete("/members/{memberID}", removeMemberHandler(svc))
	})

	return r
}

// ensureProfile creates the caller's profile on first sight, claiming any
// profile an invite created for the same email. Identities without an email
// are passed through unchanged.
func ensureProfile(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := authz.IdentityFromContext(r.Context())
			if ok && id.Email != "" {
				if _, err := svc.users.Ensure(r.Context(), id.UserID, id.Email); err != nil {
					svc.logger.Error("failed to ensure user profile", zap.String("userId", id.UserID), zap.Error(err))
					writeError(w, http.StatusInternalServerError, ErrPersistence.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
