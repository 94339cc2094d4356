package messaging

import "time"

// Message types carried on the punchlab topics.
const (
	MsgExecutionRequest = "execution_request"
	MsgExecutionResult  = "execution_result"
)

// Envelope is the typed wrapper for all console <-> integration messages.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	ConsoleID string    `json:"console_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// --- Inbound payloads (integrations -> console) ---

// ExecutionRequest triggers a PunchOut test run remotely, e.g. from a CI
// pipeline after a gateway deploy.
type ExecutionRequest struct {
	Environment string `json:"environment"`
	CustomerID  string `json:"customer_id"`
	TestName    string `json:"test_name"`
	Tester      string `json:"tester"`
}

// --- Outbound payloads (console -> integrations) ---

// ExecutionResult is the terminal outcome of one test run.
type ExecutionResult struct {
	ExecutionID  int64     `json:"execution_id"`
	Environment  string    `json:"environment"`
	CustomerID   string    `json:"customer_id"`
	TestName     string    `json:"test_name"`
	SessionKey   string    `json:"session_key"`
	Success      bool      `json:"success"`
	Failure      string    `json:"failure,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	HTTPStatus   int       `json:"http_status"`
	CatalogURL   string    `json:"catalog_url,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}
