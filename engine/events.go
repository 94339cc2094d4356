package engine

const (
	EventExecutionStarted EventType = iota + 1
	EventStageChanged
	EventAttemptFinished
	EventCountdownTick
	EventRedirectPerformed
	EventRedirectCancelled
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type ExecutionStartedEvent struct {
	ExecutionID  int64
	Environment  string
	CustomerID   string
	CustomerName string
	TestName     string
	Tester       string
}

type StageChangedEvent struct {
	ExecutionID int64
	SessionKey  string
	Stage       string
	Status      string
}

type AttemptFinishedEvent struct {
	ExecutionID  int64
	Success      bool
	Failure      string
	ErrorMessage string
	SessionKey   string
	HTTPStatus   int
	CatalogURL   string
	RawResponse  string
	Stages       map[string]string
}

type CountdownTickEvent struct {
	ExecutionID int64
	SecondsLeft int
}

type RedirectPerformedEvent struct {
	ExecutionID int64
	URL         string
	NewTab      bool
}

type RedirectCancelledEvent struct {
	ExecutionID int64
}

type ConnectionEvent struct {
	Detail string
}
