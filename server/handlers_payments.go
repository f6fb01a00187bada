package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-property-market/internal/metrics"
	"github.com/jrsteele09/go-property-market/payments"
)

const headerIdempotencyKey = "Idempotency-Key"

// PayHandler buys or rents a property. The Idempotency-Key header wins over the body field.
// A new payment answers 201; a replayed key answers 200 with the original transaction.
func (s *Server) PayHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req payments.PayRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey)); key != "" {
			req.IdempotencyKey = key
		}

		details, created, err := s.services.Payments.Pay(r.Context(), currentUser(r), req)
		if err != nil {
			metrics.RecordPayment(string(req.Kind), metrics.PaymentRejected)
			writeError(w, r, err)
			return
		}
		if !created {
			metrics.RecordPayment(string(details.Transaction.Kind), metrics.PaymentReplayed)
			writeJSON(w, http.StatusOK, details)
			return
		}
		metrics.RecordPayment(string(details.Transaction.Kind), metrics.PaymentCreated)
		w.Header().Set("Location", RoutePayments+"/"+details.Transaction.ID)
		writeJSON(w, http.StatusCreated, details)
	}
}

func (s *Server) ListPaymentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, limit, err := pagination(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp, err := s.services.Payments.ListForUser(r.Context(), currentUser(r).ID, offset, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) GetPaymentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := s.services.Payments.Get(r.Context(), currentUser(r), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

func (s *Server) PaymentSummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := s.services.Payments.Summary(r.Context(), currentUser(r).ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
