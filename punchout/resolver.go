package punchout

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"punchlab/backend"
)

// SessionSource supplies the backend's session record for the fallback
// lookup. backend.Client satisfies it.
type SessionSource interface {
	GetSession(ctx context.Context, sessionKey string) (*backend.Session, error)
}

// failedPrefix marks the backend's own failure sentinel; a "FAILED..." value
// is an absent URL, not a destination.
const failedPrefix = "FAILED"

type catalogResponse struct {
	StartURL   string `json:"start_url"`
	CatalogURL string `json:"catalogUrl"`
}

// ResolveCatalogURL finds the redirect destination for a completed attempt.
// Priority order: the outbound Mule/Catalog audit entry's response body
// (start_url, then catalogUrl), then the session record's catalog field.
// Returns "" when nothing usable is found; the caller suppresses the
// redirect in that case.
func ResolveCatalogURL(ctx context.Context, sessionKey string, entries []backend.NetworkRequest, sessions SessionSource) string {
	if url := catalogURLFromEntries(entries); url != "" {
		return url
	}

	if sessions != nil {
		s, err := sessions.GetSession(ctx, sessionKey)
		if err != nil {
			log.Printf("punchout: session lookup %s: %v", sessionKey, err)
		} else if url := usable(s.Catalog); url != "" {
			return url
		}
	}

	return ""
}

func catalogURLFromEntries(entries []backend.NetworkRequest) string {
	for _, e := range entries {
		if e.Direction != backend.DirectionOutbound {
			continue
		}
		if e.Destination != backend.DestMuleService && e.Destination != backend.DestCatalogService {
			continue
		}
		var body catalogResponse
		if err := json.Unmarshal([]byte(e.ResponseBody), &body); err != nil {
			// Not JSON, or not the shape we need. Not an error; try the
			// next source.
			continue
		}
		if url := usable(body.StartURL); url != "" {
			return url
		}
		if url := usable(body.CatalogURL); url != "" {
			return url
		}
	}
	return ""
}

func usable(url string) string {
	if url == "" || strings.HasPrefix(url, failedPrefix) {
		return ""
	}
	return url
}
