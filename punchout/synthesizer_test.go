package punchout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"punchlab/cxml"
	"punchlab/gateway"
)

type fakeTemplates struct {
	customer    string
	customerErr error
	env         string
	envErr      error
}

func (f *fakeTemplates) CustomerTemplate(_ context.Context, _, _ string) (string, error) {
	return f.customer, f.customerErr
}

func (f *fakeTemplates) EnvironmentTemplate(_ context.Context, _ string) (string, error) {
	return f.env, f.envErr
}

func fixedSynthesizer(templates TemplateSource) *Synthesizer {
	s := NewSynthesizer(templates)
	s.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	return s
}

func TestSynthesizeCustomerTemplateWins(t *testing.T) {
	templates := &fakeTemplates{
		customer: "customer says {SESSION_KEY}",
		env:      "env says {SESSION_KEY}",
	}
	s := fixedSynthesizer(templates)

	payload, key := s.Synthesize(context.Background(), "dev", Customer{ID: "cust1"})
	if key != "SESSION_DEV_cust1_1700000000000" {
		t.Errorf("session key = %q", key)
	}
	if payload != "customer says "+key {
		t.Errorf("payload = %q, want customer template", payload)
	}
}

func TestSynthesizeEnvironmentFallback(t *testing.T) {
	templates := &fakeTemplates{
		customerErr: gateway.ErrTemplateNotFound,
		env:         "env says {SESSION_KEY}",
	}
	s := fixedSynthesizer(templates)

	payload, key := s.Synthesize(context.Background(), "dev", Customer{ID: "cust1"})
	if payload != "env says "+key {
		t.Errorf("payload = %q, want environment template", payload)
	}
}

func TestSynthesizeBuiltInFallback(t *testing.T) {
	templates := &fakeTemplates{
		customerErr: gateway.ErrTemplateNotFound,
		envErr:      gateway.ErrTemplateNotFound,
	}
	s := fixedSynthesizer(templates)

	payload, key := s.Synthesize(context.Background(), "qa", Customer{
		ID: "cust1", Name: "Acme", BuyerID: "buyer-9", Domain: "NetworkID",
	})
	if !strings.Contains(payload, "<BuyerCookie>"+key+"</BuyerCookie>") {
		t.Error("built-in skeleton missing correlation token")
	}
	if !strings.Contains(payload, "buyer-9") || !strings.Contains(payload, "NetworkID") {
		t.Error("built-in skeleton missing customer identity fields")
	}
}

func TestSynthesizeLookupOutageFallsThrough(t *testing.T) {
	templates := &fakeTemplates{
		customerErr: errors.New("store unreachable"),
		envErr:      errors.New("store unreachable"),
	}
	s := fixedSynthesizer(templates)

	payload, _ := s.Synthesize(context.Background(), "dev", Customer{ID: "cust1"})
	if !strings.Contains(payload, "<PunchOutSetupRequest") {
		t.Error("outage should fall through to the built-in skeleton")
	}
}

func TestSynthesizeNilTemplateSource(t *testing.T) {
	s := fixedSynthesizer(nil)
	payload, _ := s.Synthesize(context.Background(), "dev", Customer{ID: "cust1"})
	if !strings.Contains(payload, "<PunchOutSetupRequest") {
		t.Error("nil template source should use the built-in skeleton")
	}
	if strings.Contains(payload, cxml.PlaceholderSessionKey) {
		t.Error("unrendered session key token left in payload")
	}
}
