package server

import (
	"net/http"

	"github.com/jrsteele09/go-property-market/complaints"
)

type complaintStatusRequest struct {
	Status     complaints.Status `json:"status"`
	Resolution string            `json:"resolution"`
}

func (s *Server) FileComplaintHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req complaints.FileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := s.services.Complaints.File(r.Context(), currentUser(r), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

// ListComplaintsHandler takes ?scope=mine|received|all and an optional ?status=
func (s *Server) ListComplaintsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := pagination(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		q := r.URL.Query()
		resp, err := s.services.Complaints.List(r.Context(), currentUser(r),
			complaints.Scope(q.Get("scope")), complaints.Status(q.Get("status")), offset, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) GetComplaintHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.services.Complaints.Get(r.Context(), currentUser(r), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) UpdateComplaintStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req complaintStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		c, err := s.services.Complaints.UpdateStatus(r.Context(), currentUser(r), r.PathValue("id"), req.Status, req.Resolution)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) DeleteComplaintHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Complaints.Delete(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
