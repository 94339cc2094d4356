package punchout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"punchlab/backend"
	"punchlab/gateway"
)

type fakeDispatcher struct {
	result  *gateway.SetupResult
	err     error
	payload string
}

func (f *fakeDispatcher) PostSetup(_ context.Context, payload string) (*gateway.SetupResult, error) {
	f.payload = payload
	return f.result, f.err
}

type recordedEmits struct {
	stages   []StageChange
	finished []*ExecutionResult
}

func (e *recordedEmits) EmitStageChanged(_ int64, _ string, stage Stage, status Status) {
	e.stages = append(e.stages, StageChange{Stage: stage, Status: status})
}

func (e *recordedEmits) EmitAttemptFinished(_ int64, result *ExecutionResult) {
	e.finished = append(e.finished, result)
}

func newTestRunner(dispatcher SetupDispatcher, audit *fakeAudit, sessions SessionSource, emitter Emitter) *Runner {
	synth := fixedSynthesizer(nil)
	poller := NewPoller(audit, 500*time.Millisecond, 800*time.Millisecond, 10)
	poller.sleep = func(_ context.Context, _ time.Duration) error { return nil }
	r := NewRunner(synth, dispatcher, poller, sessions, emitter)
	r.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	return r
}

func TestExecuteFullSuccess(t *testing.T) {
	const key = "SESSION_DEV_cust1_1700000000000"
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{
		OK:         true,
		StatusCode: 200,
		Body:       "<cXML><BuyerCookie>" + key + "</BuyerCookie></cXML>",
	}}
	audit := &fakeAudit{rounds: []fakeRound{{entries: []backend.NetworkRequest{
		{Destination: backend.DestAuthService, Success: true},
		{
			Direction:    backend.DirectionOutbound,
			Destination:  backend.DestMuleService,
			Success:      true,
			ResponseBody: `{"start_url":"https://cat.example.com/x"}`,
		},
	}}}}
	emits := &recordedEmits{}
	r := newTestRunner(dispatcher, audit, nil, emits)

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if !result.Success || result.Failure != FailureNone {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.SessionKey != key {
		t.Errorf("session key = %q, want %q", result.SessionKey, key)
	}
	if result.CatalogURL != "https://cat.example.com/x" {
		t.Errorf("catalog url = %q", result.CatalogURL)
	}
	if result.HTTPStatus != 200 {
		t.Errorf("http status = %d, want 200", result.HTTPStatus)
	}
	want := Progress{Parsing: StatusSuccess, Auth: StatusSuccess, Catalog: StatusSuccess, Complete: StatusSuccess}
	if result.Stages != want {
		t.Errorf("stages = %+v, want all success", result.Stages)
	}
	if !strings.Contains(dispatcher.payload, "<BuyerCookie>"+key+"</BuyerCookie>") {
		t.Error("dispatched payload missing correlation token")
	}
	if len(emits.finished) != 1 {
		t.Errorf("finished emits = %d, want 1", len(emits.finished))
	}
}

func TestExecuteCorrelationFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{
		OK:         true,
		StatusCode: 200,
		Body:       "<cXML><Status code=\"200\"/></cXML>",
	}}
	audit := &fakeAudit{}
	r := newTestRunner(dispatcher, audit, nil, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if result.Success || result.Failure != FailureCorrelation {
		t.Fatalf("result = %+v, want correlation failure", result)
	}
	if audit.calls != 0 {
		t.Errorf("poll fetches = %d, want 0 without a correlation token", audit.calls)
	}
	// Dispatch itself succeeded; only the stages past parsing stay untouched.
	if result.Stages.Parsing != StatusSuccess {
		t.Errorf("parsing = %q, want success", result.Stages.Parsing)
	}
	for _, stage := range []Stage{StageAuth, StageCatalog, StageComplete} {
		if result.Stages.Get(stage) != StatusPending {
			t.Errorf("%s = %q, want pending", stage, result.Stages.Get(stage))
		}
	}
}

func TestExecuteDispatchTransportFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("dial tcp: connection refused")}
	audit := &fakeAudit{}
	r := newTestRunner(dispatcher, audit, nil, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if result.Failure != FailureDispatch {
		t.Fatalf("failure = %q, want dispatch", result.Failure)
	}
	if result.Stages.Parsing != StatusError {
		t.Errorf("parsing = %q, want error", result.Stages.Parsing)
	}
	if audit.calls != 0 {
		t.Errorf("poll fetches = %d, want 0 after a dispatch failure", audit.calls)
	}
	if result.ErrorMessage == "" {
		t.Error("error message empty")
	}
}

func TestExecuteDispatchRejected(t *testing.T) {
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{OK: false, StatusCode: 500, Body: "boom"}}
	r := newTestRunner(dispatcher, &fakeAudit{}, nil, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if result.Failure != FailureDispatch {
		t.Fatalf("failure = %q, want dispatch", result.Failure)
	}
	if result.HTTPStatus != 500 || result.RawResponse != "boom" {
		t.Errorf("status/body = %d/%q, want the gateway's response preserved", result.HTTPStatus, result.RawResponse)
	}
	if !strings.Contains(result.ErrorMessage, "500") {
		t.Errorf("error message = %q, want the status code", result.ErrorMessage)
	}
}

func TestExecutePollExhaustion(t *testing.T) {
	const key = "SESSION_DEV_cust1_1700000000000"
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{
		OK:         true,
		StatusCode: 200,
		Body:       "<BuyerCookie>" + key + "</BuyerCookie>",
	}}
	audit := &fakeAudit{rounds: []fakeRound{{entries: nil}}}
	r := newTestRunner(dispatcher, audit, nil, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if result.Success || result.Failure != FailurePollExhausted {
		t.Fatalf("result = %+v, want poll exhaustion", result)
	}
	if audit.calls != 10 {
		t.Errorf("poll fetches = %d, want 10", audit.calls)
	}
	// Auth was the active stage when the loop ran dry.
	if result.Stages.Auth != StatusError {
		t.Errorf("auth = %q, want error", result.Stages.Auth)
	}
	if !strings.Contains(result.ErrorMessage, "10") {
		t.Errorf("error message = %q, want the attempt count", result.ErrorMessage)
	}
}

func TestExecutePartialAuthThenExhaustion(t *testing.T) {
	const key = "SESSION_DEV_cust1_1700000000000"
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{
		OK:         true,
		StatusCode: 200,
		Body:       "<BuyerCookie>" + key + "</BuyerCookie>",
	}}
	audit := &fakeAudit{rounds: []fakeRound{{entries: []backend.NetworkRequest{
		{Destination: backend.DestAuthService, Success: true},
	}}}}
	r := newTestRunner(dispatcher, audit, nil, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if result.Failure != FailurePollExhausted {
		t.Fatalf("failure = %q, want poll exhaustion", result.Failure)
	}
	if result.Stages.Auth != StatusSuccess {
		t.Errorf("auth = %q, want success (it was observed)", result.Stages.Auth)
	}
	if result.Stages.Catalog != StatusError {
		t.Errorf("catalog = %q, want error (it was the active stage)", result.Stages.Catalog)
	}
}

func TestExecuteSessionFallbackForCatalogURL(t *testing.T) {
	const key = "SESSION_DEV_cust1_1700000000000"
	dispatcher := &fakeDispatcher{result: &gateway.SetupResult{
		OK:         true,
		StatusCode: 200,
		Body:       "<BuyerCookie>" + key + "</BuyerCookie>",
	}}
	audit := &fakeAudit{rounds: []fakeRound{{entries: []backend.NetworkRequest{
		{Destination: backend.DestCatalogService, Success: true, ResponseBody: "not json"},
	}}}}
	sessions := &fakeSessions{session: &backend.Session{Catalog: "https://cat.example.com/session"}}
	r := newTestRunner(dispatcher, audit, sessions, &recordedEmits{})

	result := r.Execute(context.Background(), 1, "dev", Customer{ID: "cust1"})

	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.CatalogURL != "https://cat.example.com/session" {
		t.Errorf("catalog url = %q, want session fallback", result.CatalogURL)
	}
}
