// Package tenancy resolves the project a request is scoped to and carries it
// through the request context.
package tenancy

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ProjectURLParam is the chi route parameter holding the project ID.
const ProjectURLParam = "projectID"

// ProjectHeader is the HTTP header consulted when the route has no project parameter.
const ProjectHeader = "X-Project-ID"

// TenantResolver resolves the tenant context from an HTTP request.
type TenantResolver interface {
	Resolve(r *http.Request) (TenantContext, error)
}

// ProjectResolver reads the project ID from the chi route parameter, falling
// back to the X-Project-ID header. The ID must be a UUID.
type ProjectResolver struct{}

// Resolve extracts and validates the project ID.
func (ProjectResolver) Resolve(r *http.Request) (TenantContext, error) {
	projectID := chi.URLParam(r, ProjectURLParam)
	if projectID == "" {
		projectID = r.Header.Get(ProjectHeader)
	}
	if projectID == "" {
		return TenantContext{}, fmt.Errorf("project is required (use /projects/{projectID}/... or the %s header)", ProjectHeader)
	}
	if err := validateProjectID(projectID); err != nil {
		return TenantContext{}, err
	}
	return TenantContext{ProjectID: projectID}, nil
}

func validateProjectID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("project id %q is invalid: must be a UUID", id)
	}
	return nil
}
