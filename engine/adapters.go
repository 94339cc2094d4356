package engine

import (
	"punchlab/punchout"
	"punchlab/redirect"
)

// punchoutEmitter bridges the punchout package's emitter interface to the EventBus.
type punchoutEmitter struct {
	bus *EventBus
}

func (e *punchoutEmitter) EmitStageChanged(executionID int64, sessionKey string, stage punchout.Stage, status punchout.Status) {
	e.bus.Emit(Event{Type: EventStageChanged, Payload: StageChangedEvent{
		ExecutionID: executionID,
		SessionKey:  sessionKey,
		Stage:       string(stage),
		Status:      string(status),
	}})
}

func (e *punchoutEmitter) EmitAttemptFinished(executionID int64, result *punchout.ExecutionResult) {
	e.bus.Emit(Event{Type: EventAttemptFinished, Payload: AttemptFinishedEvent{
		ExecutionID:  executionID,
		Success:      result.Success,
		Failure:      string(result.Failure),
		ErrorMessage: result.ErrorMessage,
		SessionKey:   result.SessionKey,
		HTTPStatus:   result.HTTPStatus,
		CatalogURL:   result.CatalogURL,
		RawResponse:  result.RawResponse,
		Stages: map[string]string{
			string(punchout.StageParsing):  string(result.Stages.Parsing),
			string(punchout.StageAuth):     string(result.Stages.Auth),
			string(punchout.StageCatalog):  string(result.Stages.Catalog),
			string(punchout.StageComplete): string(result.Stages.Complete),
		},
	}})
}

var _ punchout.Emitter = (*punchoutEmitter)(nil)

// redirectEmitter bridges the redirect scheduler's events to the EventBus.
type redirectEmitter struct {
	bus *EventBus
}

func (e *redirectEmitter) EmitCountdownTick(executionID int64, secondsLeft int) {
	e.bus.Emit(Event{Type: EventCountdownTick, Payload: CountdownTickEvent{
		ExecutionID: executionID,
		SecondsLeft: secondsLeft,
	}})
}

func (e *redirectEmitter) EmitRedirectPerformed(executionID int64, url string, newTab bool) {
	e.bus.Emit(Event{Type: EventRedirectPerformed, Payload: RedirectPerformedEvent{
		ExecutionID: executionID,
		URL:         url,
		NewTab:      newTab,
	}})
}

func (e *redirectEmitter) EmitRedirectCancelled(executionID int64) {
	e.bus.Emit(Event{Type: EventRedirectCancelled, Payload: RedirectCancelledEvent{
		ExecutionID: executionID,
	}})
}

var _ redirect.Emitter = (*redirectEmitter)(nil)
