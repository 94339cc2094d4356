package www

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// configView is the editable subset of the runtime config. Secrets and the
// database section are deliberately not exposed over the API.
type configView struct {
	Gateway struct {
		BaseURL string `json:"base_url"`
		Timeout string `json:"timeout"`
	} `json:"gateway"`
	API struct {
		BaseURL        string `json:"base_url"`
		Timeout        string `json:"timeout"`
		PersistResults bool   `json:"persist_results"`
	} `json:"api"`
	Redirect struct {
		CountdownSeconds int `json:"countdown_seconds"`
	} `json:"redirect"`
	Messaging struct {
		KafkaBrokers  string `json:"kafka_brokers"`
		ResultsTopic  string `json:"results_topic"`
		RequestsTopic string `json:"requests_topic"`
		ConsoleID     string `json:"console_id"`
	} `json:"messaging"`
}

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()

	var v configView
	v.Gateway.BaseURL = cfg.Gateway.BaseURL
	v.Gateway.Timeout = cfg.Gateway.Timeout.String()
	v.API.BaseURL = cfg.API.BaseURL
	v.API.Timeout = cfg.API.Timeout.String()
	v.API.PersistResults = cfg.API.PersistResults
	v.Redirect.CountdownSeconds = cfg.Redirect.CountdownSeconds
	v.Messaging.KafkaBrokers = strings.Join(cfg.Messaging.Kafka.Brokers, ",")
	v.Messaging.ResultsTopic = cfg.Messaging.ResultsTopic
	v.Messaging.RequestsTopic = cfg.Messaging.RequestsTopic
	v.Messaging.ConsoleID = cfg.Messaging.ConsoleID

	h.jsonOK(w, v)
}

func (h *Handlers) apiSaveConfig(w http.ResponseWriter, r *http.Request) {
	var v configView
	if err := decodeJSON(r, &v); err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg := h.engine.AppConfig()

	cfg.Gateway.BaseURL = v.Gateway.BaseURL
	if d, err := time.ParseDuration(v.Gateway.Timeout); err == nil {
		cfg.Gateway.Timeout = d
	}
	cfg.API.BaseURL = v.API.BaseURL
	if d, err := time.ParseDuration(v.API.Timeout); err == nil {
		cfg.API.Timeout = d
	}
	cfg.API.PersistResults = v.API.PersistResults
	if v.Redirect.CountdownSeconds > 0 {
		cfg.Redirect.CountdownSeconds = v.Redirect.CountdownSeconds
	}
	cfg.Messaging.Kafka.Brokers = splitTrim(v.Messaging.KafkaBrokers, ",")
	cfg.Messaging.ResultsTopic = v.Messaging.ResultsTopic
	cfg.Messaging.RequestsTopic = v.Messaging.RequestsTopic
	cfg.Messaging.ConsoleID = v.Messaging.ConsoleID

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		h.jsonError(w, "failed to save: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Hot-reload the affected subsystems
	h.engine.ReconfigureGateway()
	h.engine.ReconfigureBackend()
	h.engine.ReconfigureMessaging()

	log.Printf("config: saved by %s", h.getUsername(r))
	h.jsonOK(w, map[string]any{"ok": true})
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
