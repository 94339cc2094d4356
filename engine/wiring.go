package engine

import (
	"context"
	"time"

	"punchlab/backend"
	"punchlab/messaging"
	"punchlab/redirect"
	"punchlab/store"
)

func (e *Engine) wireEventHandlers() {
	// Persist each stage transition for the history detail view.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StageChangedEvent)
		if err := e.db.AddExecutionEvent(ev.ExecutionID, ev.Stage, ev.Status); err != nil {
			e.logFn("engine: record stage change for %d: %v", ev.ExecutionID, err)
		}
	}, EventStageChanged)

	// Terminal outcome: persist, report, and maybe schedule the redirect.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(AttemptFinishedEvent)
		e.handleAttemptFinished(ev)
	}, EventAttemptFinished)

	// Redirect lifecycle: the scheduler registry only holds live countdowns.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RedirectPerformedEvent)
		e.dropRedirect(ev.ExecutionID)
		e.logFn("engine: execution %d redirected to %s (newTab=%v)", ev.ExecutionID, ev.URL, ev.NewTab)
	}, EventRedirectPerformed)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RedirectCancelledEvent)
		e.dropRedirect(ev.ExecutionID)
		e.logFn("engine: execution %d redirect cancelled", ev.ExecutionID)
	}, EventRedirectCancelled)
}

func (e *Engine) handleAttemptFinished(ev AttemptFinishedEvent) {
	status := store.ExecutionFailed
	if ev.Success {
		status = store.ExecutionSuccess
	}
	if err := e.db.FinishExecution(&store.Execution{
		ID:           ev.ExecutionID,
		SessionKey:   ev.SessionKey,
		Status:       status,
		Failure:      ev.Failure,
		ErrorMessage: ev.ErrorMessage,
		HTTPStatus:   ev.HTTPStatus,
		CatalogURL:   ev.CatalogURL,
		RawResponse:  ev.RawResponse,
	}); err != nil {
		e.logFn("engine: finish execution %d: %v", ev.ExecutionID, err)
	}

	exec, err := e.db.GetExecution(ev.ExecutionID)
	if err != nil {
		e.logFn("engine: load execution %d: %v", ev.ExecutionID, err)
		return
	}

	if e.cfg.API.PersistResults {
		go e.persistTestRecord(exec, ev.Success)
	}

	e.enqueueResult(exec, ev)

	if ev.Success && ev.CatalogURL != "" {
		e.scheduleRedirect(ev.ExecutionID, ev.CatalogURL)
	}

	e.logFn("engine: execution %d finished: %s", ev.ExecutionID, status)
}

func (e *Engine) persistTestRecord(exec *store.Execution, success bool) {
	status := backend.TestStatusFailed
	if success {
		status = backend.TestStatusSuccess
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.API.Timeout)
	defer cancel()
	err := e.backend.CreateTestRecord(ctx, &backend.TestRecord{
		TestName:    exec.TestName,
		Environment: exec.Environment,
		Tester:      exec.Tester,
		TestDate:    time.Now().Format(time.RFC3339),
		Status:      status,
		SessionKey:  exec.SessionKey,
	})
	if err != nil {
		e.logFn("engine: persist test record for %d: %v", exec.ID, err)
	}
}

func (e *Engine) enqueueResult(exec *store.Execution, ev AttemptFinishedEvent) {
	env := messaging.NewEnvelope(messaging.MsgExecutionResult, e.cfg.Messaging.ConsoleID, messaging.ExecutionResult{
		ExecutionID:  exec.ID,
		Environment:  exec.Environment,
		CustomerID:   exec.CustomerID,
		TestName:     exec.TestName,
		SessionKey:   ev.SessionKey,
		Success:      ev.Success,
		Failure:      ev.Failure,
		ErrorMessage: ev.ErrorMessage,
		HTTPStatus:   ev.HTTPStatus,
		CatalogURL:   ev.CatalogURL,
		FinishedAt:   time.Now().UTC(),
	})
	data, err := env.Encode()
	if err != nil {
		e.logFn("engine: encode result for %d: %v", exec.ID, err)
		return
	}
	if err := e.db.EnqueueOutbox(e.cfg.Messaging.ResultsTopic, data, messaging.MsgExecutionResult, e.cfg.Messaging.ConsoleID); err != nil {
		e.logFn("engine: enqueue result for %d: %v", exec.ID, err)
	}
}

func (e *Engine) scheduleRedirect(executionID int64, url string) {
	s := redirect.NewScheduler(executionID, url, e.cfg.Redirect.CountdownSeconds, &redirectEmitter{bus: e.Events})
	e.mu.Lock()
	e.redirects[executionID] = s
	e.mu.Unlock()
	s.Start()
}
