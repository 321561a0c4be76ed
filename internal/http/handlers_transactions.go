package http

import (
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	q := r.URL.Query()

	win, err := windowFromQuery(q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	limit, err := queryInt(q, "limit")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	offset, err := queryInt(q, "offset")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	kind := q.Get("type")
	if kind == "" {
		kind = q.Get("kind")
	}
	txs, err := s.svc.Transactions.List(r.Context(), uid, services.ListQuery{
		Kind:     kind,
		Category: q.Get("category"),
		Window:   win,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": newTransactionViews(txs)})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.svc.Transactions.Create(r.Context(), uid, services.TransactionInput{
		Kind:        p.First("type", "kind"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Transaction created successfully", map[string]any{
		"transaction": newTransactionView(tx),
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tx, err := s.svc.Transactions.Get(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": newTransactionView(tx)})
}

// handleUpdateTransaction serves both PUT and PATCH; only the fields present
// in the body change.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.svc.Transactions.Update(r.Context(), uid, id, services.TransactionPatch{
		Kind:        p.Optional("type", "kind"),
		Amount:      p.Optional("amount"),
		Category:    p.Optional("category"),
		Date:        p.Optional("date"),
		Description: p.Optional("description"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Transaction updated successfully", map[string]any{
		"transaction": newTransactionView(tx),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.Transactions.Delete(r.Context(), uid, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Transaction deleted successfully", nil)
}
