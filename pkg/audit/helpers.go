package audit

import (
	"context"
	"net/http"
	"strings"
)

type traceKey struct{}

// trace is filled in by Track, which runs deeper in the handler chain than
// AccessLog and so cannot hand values back through the request context.
type trace struct {
	actor     string
	projectID string
}

func withTrace(ctx context.Context) context.Context {
	return context.WithValue(ctx, traceKey{}, &trace{actor: "anonymous"})
}

func traceFrom(ctx context.Context) *trace {
	tr, _ := ctx.Value(traceKey{}).(*trace)
	if tr == nil {
		return &trace{actor: "anonymous"}
	}
	return tr
}

var resourceSegments = map[string]bool{
	"projects":  true,
	"assets":    true,
	"approvals": true,
	"comments":  true,
	"members":   true,
	"chains":    true,
	"phases":    true,
	"clubs":     true,
	"athletes":  true,
	"activity":  true,
	"dashboard": true,
	"queue":     true,
	"library":   true,
	"me":        true,
}

// resourceFromPath returns the innermost resource named in an API path and
// the ID that follows it, if any. For
// /api/v1/projects/p1/assets/a1/submit it returns ("assets", "a1").
func resourceFromPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	resource, id := "", ""
	for i, p := range parts {
		if !resourceSegments[p] {
			continue
		}
		resource, id = p, ""
		if i+1 < len(parts) && !resourceSegments[parts[i+1]] {
			id = parts[i+1]
		}
	}
	return resource, id
}

// actionVerb names the operation: the trailing verb segment for workflow
// actions such as submit or decision, otherwise the HTTP method.
func actionVerb(method, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 0 {
		switch last := parts[len(parts)-1]; last {
		case "submit", "decision", "status":
			return last
		}
	}
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodPatch:
		return "patch"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// isHealthEndpoint returns true for health-check and scrape paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz", "/metrics":
		return true
	}
	return false
}
