package http

import (
	"net/http"
	"strings"
)

// Identity is the authenticated caller, as asserted by the auth collaborator
// in front of this service. The edge proxy strips these headers from client
// traffic and re-injects verified values.
type Identity struct {
	UserID string
	Admin  bool
}

const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
	roleAdmin      = "admin"
)

func identityFrom(r *http.Request) (Identity, bool) {
	userID := strings.TrimSpace(r.Header.Get(headerUserID))
	if userID == "" {
		return Identity{}, false
	}
	return Identity{
		UserID: userID,
		Admin:  strings.EqualFold(strings.TrimSpace(r.Header.Get(headerUserRole)), roleAdmin),
	}, true
}

// requireUser writes 401 and reports false when no identity is present.
func requireUser(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := identityFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return Identity{}, false
	}
	return id, true
}

// requireAdmin writes 401/403 and reports false unless the caller is an admin.
func requireAdmin(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	id, ok := requireUser(w, r)
	if !ok {
		return Identity{}, false
	}
	if !id.Admin {
		writeError(w, http.StatusForbidden, codeForbidden, "admin role required")
		return Identity{}, false
	}
	return id, true
}
