package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"punchlab/store"
)

func (h *Handlers) apiListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.engine.DB().ListCustomers()
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, customers)
}

func (h *Handlers) apiCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
		Name       string `json:"name"`
		BuyerID    string `json:"buyer_id"`
		Domain     string `json:"domain"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.CustomerID == "" {
		h.jsonError(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	c := &store.Customer{
		CustomerID: req.CustomerID,
		Name:       req.Name,
		BuyerID:    req.BuyerID,
		Domain:     req.Domain,
	}
	id, err := h.engine.DB().CreateCustomer(c)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"id": id})
}

func (h *Handlers) apiUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	var req struct {
		Name    string `json:"name"`
		BuyerID string `json:"buyer_id"`
		Domain  string `json:"domain"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	err := h.engine.DB().UpdateCustomer(&store.Customer{
		CustomerID: customerID,
		Name:       req.Name,
		BuyerID:    req.BuyerID,
		Domain:     req.Domain,
	})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"ok": true})
}

func (h *Handlers) apiDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if err := h.engine.DB().DeleteCustomer(customerID); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]any{"ok": true})
}

// apiPreviewTemplate renders the setup document that would be dispatched for
// a customer/environment pair, without sending anything.
func (h *Handlers) apiPreviewTemplate(w http.ResponseWriter, r *http.Request) {
	environment := chi.URLParam(r, "environment")
	customerID := chi.URLParam(r, "customerID")

	payload, sessionKey := h.engine.PreviewPayload(r.Context(), environment, customerID)
	h.jsonOK(w, map[string]any{
		"session_key": sessionKey,
		"payload":     payload,
	})
}
