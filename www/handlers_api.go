package www

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	dbOK := h.engine.DB().Ping() == nil

	messagingOK := false
	if mc := h.engine.MsgClient(); mc != nil {
		messagingOK = mc.IsConnected()
	}

	h.jsonOK(w, map[string]any{
		"status":      "ok",
		"database":    dbOK,
		"messaging":   messagingOK,
		"sse_clients": h.eventHub.ClientCount(),
	})
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
