package punchout

import (
	"context"
	"fmt"
	"time"

	"punchlab/backend"
	"punchlab/cxml"
	"punchlab/gateway"
)

// SetupDispatcher performs the single outbound setup call.
// gateway.Client satisfies it.
type SetupDispatcher interface {
	PostSetup(ctx context.Context, payload string) (*gateway.SetupResult, error)
}

// Runner drives one execution attempt end to end: synthesize, dispatch,
// correlate, poll, resolve. Each attempt gets its own Progress value and
// correlation token; concurrent attempts share nothing.
type Runner struct {
	synth    *Synthesizer
	gateway  SetupDispatcher
	poller   *Poller
	sessions SessionSource
	emitter  Emitter
	now      func() time.Time
}

func NewRunner(synth *Synthesizer, gw SetupDispatcher, poller *Poller, sessions SessionSource, emitter Emitter) *Runner {
	return &Runner{
		synth:    synth,
		gateway:  gw,
		poller:   poller,
		sessions: sessions,
		emitter:  emitter,
		now:      time.Now,
	}
}

// Execute runs one attempt and returns its result. Failures are encoded in
// the result, never returned as an error: the operator always gets the full
// four-stage view plus whatever was observed.
func (r *Runner) Execute(ctx context.Context, executionID int64, environment string, customer Customer) *ExecutionResult {
	prog := NewProgress()
	r.emitStage(executionID, "", StageParsing, StatusLoading)

	payload, sessionKey := r.synth.Synthesize(ctx, environment, customer)

	result := &ExecutionResult{SessionKey: sessionKey}

	setup, err := r.gateway.PostSetup(ctx, payload)
	if err != nil {
		// Transport failure: terminal, nothing downstream to observe.
		r.applyChanges(executionID, sessionKey, &prog, prog.MarkDispatchFailed())
		return r.finish(executionID, result, prog, FailureDispatch, err.Error())
	}

	result.HTTPStatus = setup.StatusCode
	result.RawResponse = setup.Body

	if !setup.OK {
		r.applyChanges(executionID, sessionKey, &prog, prog.MarkDispatchFailed())
		return r.finish(executionID, result, prog, FailureDispatch,
			fmt.Sprintf("gateway returned HTTP %d", setup.StatusCode))
	}

	r.applyChanges(executionID, sessionKey, &prog, prog.MarkDispatched())

	cookie, ok := cxml.ExtractBuyerCookie(setup.Body)
	if !ok {
		// Dispatched but uncorrelatable: no polling, stages beyond parsing
		// stay untouched.
		return r.finish(executionID, result, prog, FailureCorrelation,
			"no BuyerCookie in gateway response")
	}
	result.SessionKey = cookie

	r.applyChanges(executionID, cookie, &prog, prog.BeginPolling())

	outcome := r.poller.Poll(ctx, cookie, &runnerSignals{r: r, executionID: executionID, sessionKey: cookie, prog: &prog})
	result.Entries = outcome.Entries

	if outcome.CatalogEntry == nil {
		r.applyChanges(executionID, cookie, &prog, prog.FailActive())
		return r.finish(executionID, result, prog, FailurePollExhausted,
			fmt.Sprintf("no catalog confirmation after %d poll attempts", outcome.Attempts))
	}

	// Resolution failure is non-fatal: the attempt succeeded, the operator
	// just gets no redirect.
	result.CatalogURL = ResolveCatalogURL(ctx, cookie, outcome.Entries, r.sessions)
	result.Success = true
	return r.finish(executionID, result, prog, FailureNone, "")
}

func (r *Runner) finish(executionID int64, result *ExecutionResult, prog Progress, failure FailureKind, errMsg string) *ExecutionResult {
	result.Failure = failure
	result.ErrorMessage = errMsg
	result.Stages = prog
	result.FinishedAt = r.now()
	if r.emitter != nil {
		r.emitter.EmitAttemptFinished(executionID, result)
	}
	return result
}

func (r *Runner) applyChanges(executionID int64, sessionKey string, prog *Progress, changes []StageChange) {
	for _, c := range changes {
		r.emitStage(executionID, sessionKey, c.Stage, c.Status)
	}
}

func (r *Runner) emitStage(executionID int64, sessionKey string, stage Stage, status Status) {
	if r.emitter != nil {
		r.emitter.EmitStageChanged(executionID, sessionKey, stage, status)
	}
}

// runnerSignals routes poll observations into the progress machine.
type runnerSignals struct {
	r           *Runner
	executionID int64
	sessionKey  string
	prog        *Progress
}

func (s *runnerSignals) AuthObserved() {
	s.r.applyChanges(s.executionID, s.sessionKey, s.prog, s.prog.MarkAuthObserved())
}

func (s *runnerSignals) CatalogObserved(_ backend.NetworkRequest) {
	s.r.applyChanges(s.executionID, s.sessionKey, s.prog, s.prog.MarkCatalogObserved())
}
