package www

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"punchlab/engine"
)

func (h *Handlers) apiSubmitExecution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Environment string `json:"environment"`
		CustomerID  string `json:"customer_id"`
		TestName    string `json:"test_name"`
		Tester      string `json:"tester"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Environment == "" || req.CustomerID == "" {
		h.jsonError(w, "environment and customer_id are required", http.StatusBadRequest)
		return
	}
	if req.Tester == "" {
		req.Tester = h.getUsername(r)
	}

	id, err := h.engine.StartExecution(engine.ExecutionRequest{
		Environment: req.Environment,
		CustomerID:  req.CustomerID,
		TestName:    req.TestName,
		Tester:      req.Tester,
	})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"id": id})
}

func (h *Handlers) apiListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	execs, err := h.engine.DB().ListExecutions(limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, execs)
}

func (h *Handlers) apiGetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := executionID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	exec, err := h.engine.DB().GetExecution(id)
	if err != nil {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	events, err := h.engine.DB().ListExecutionEvents(id)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{
		"execution": exec,
		"events":    events,
	})
}

func (h *Handlers) apiRedirectNow(w http.ResponseWriter, r *http.Request) {
	h.redirectOverride(w, r, h.engine.RedirectNow)
}

func (h *Handlers) apiRedirectOpenNew(w http.ResponseWriter, r *http.Request) {
	h.redirectOverride(w, r, h.engine.RedirectOpenNew)
}

func (h *Handlers) apiRedirectCancel(w http.ResponseWriter, r *http.Request) {
	h.redirectOverride(w, r, h.engine.RedirectCancel)
}

func (h *Handlers) redirectOverride(w http.ResponseWriter, r *http.Request, fn func(int64) error) {
	id, err := executionID(r)
	if err != nil {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := fn(id); err != nil {
		if errors.Is(err, engine.ErrNoActiveRedirect) {
			h.jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"ok": true})
}

func executionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
