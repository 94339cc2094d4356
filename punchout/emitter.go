package punchout

// Emitter is the interface adapters must satisfy to bridge attempt progress
// to the engine's event bus.
type Emitter interface {
	EmitStageChanged(executionID int64, sessionKey string, stage Stage, status Status)
	EmitAttemptFinished(executionID int64, result *ExecutionResult)
}
