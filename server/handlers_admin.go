package server

import (
	"net/http"

	"github.com/jrsteele09/go-property-market/users"
)

// AdminUsersListHandler lists accounts, optionally filtered with ?role=
func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := pagination(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter := users.ListFilter{Role: users.RoleType(r.URL.Query().Get("role")), Offset: offset, Limit: limit}
		resp, err := s.services.Auth.ListUsers(r.Context(), currentUser(r), filter)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// AdminSetBlockedHandler blocks or unblocks the user in the path
func (s *Server) AdminSetBlockedHandler(blocked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Auth.SetBlocked(r.Context(), currentUser(r), r.PathValue("id"), blocked); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
