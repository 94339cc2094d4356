package punchout

import (
	"context"
	"errors"
	"log"
	"time"

	"punchlab/cxml"
	"punchlab/gateway"
)

// TemplateSource supplies stored setup templates. Both gateway.Client and
// gateway.TemplateCache satisfy it.
type TemplateSource interface {
	CustomerTemplate(ctx context.Context, environment, customerID string) (string, error)
	EnvironmentTemplate(ctx context.Context, environment string) (string, error)
}

// Synthesizer builds the outbound setup document for one attempt. It has no
// side effects beyond the template lookup; the rendered payload is a pure
// function of its inputs plus wall-clock time.
type Synthesizer struct {
	templates TemplateSource
	now       func() time.Time
}

func NewSynthesizer(templates TemplateSource) *Synthesizer {
	return &Synthesizer{templates: templates, now: time.Now}
}

// Synthesize resolves a template (customer -> environment default -> built-in
// skeleton), mints a fresh correlation token, and renders the payload.
func (s *Synthesizer) Synthesize(ctx context.Context, environment string, customer Customer) (payload, sessionKey string) {
	tmpl := s.resolveTemplate(ctx, environment, customer.ID)

	now := s.now()
	sessionKey = cxml.NewSessionKey(environment, customer.ID, now)
	payload = cxml.Render(tmpl, cxml.Substitutions{
		PayloadID:    cxml.NewPayloadID(sessionKey, now),
		Timestamp:    cxml.Timestamp(now),
		SessionKey:   sessionKey,
		BuyerID:      customer.BuyerID,
		Domain:       customer.Domain,
		CustomerName: customer.Name,
	})
	return payload, sessionKey
}

// resolveTemplate is a uniform three-tier lookup; the compiled-in skeleton is
// just the last tier, not a special case. Lookup errors other than a miss are
// logged and treated as a miss so an unreachable template store never blocks
// an attempt.
func (s *Synthesizer) resolveTemplate(ctx context.Context, environment, customerID string) string {
	if s.templates == nil {
		return cxml.DefaultSetupTemplate
	}

	tmpl, err := s.templates.CustomerTemplate(ctx, environment, customerID)
	if err == nil && tmpl != "" {
		return tmpl
	}
	if err != nil && !errors.Is(err, gateway.ErrTemplateNotFound) {
		log.Printf("punchout: customer template lookup %s/%s: %v", environment, customerID, err)
	}

	tmpl, err = s.templates.EnvironmentTemplate(ctx, environment)
	if err == nil && tmpl != "" {
		return tmpl
	}
	if err != nil && !errors.Is(err, gateway.ErrTemplateNotFound) {
		log.Printf("punchout: environment template lookup %s: %v", environment, err)
	}

	return cxml.DefaultSetupTemplate
}
