package punchout

import (
	"time"

	"punchlab/backend"
)

// Stage is one phase of the operator-visible progress view.
type Stage string

const (
	StageParsing  Stage = "parsing"
	StageAuth     Stage = "auth"
	StageCatalog  Stage = "catalog"
	StageComplete Stage = "complete"
)

// Status is the state of one stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// FailureKind tags how an attempt failed, so the progress machine transitions
// deterministically instead of guessing which stage was active.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureDispatch      FailureKind = "dispatch_failed"
	FailureCorrelation   FailureKind = "correlation_failed"
	FailurePollExhausted FailureKind = "poll_exhausted"
)

// Customer identifies the buyer whose credentials go into the setup document.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BuyerID string `json:"buyer_id"`
	Domain  string `json:"domain"`
}

// ExecutionResult is the immutable outcome of one attempt.
type ExecutionResult struct {
	Success      bool                     `json:"success"`
	HTTPStatus   int                      `json:"http_status"`
	SessionKey   string                   `json:"session_key"`
	RawResponse  string                   `json:"raw_response"`
	CatalogURL   string                   `json:"catalog_url,omitempty"`
	Entries      []backend.NetworkRequest `json:"entries,omitempty"`
	Failure      FailureKind              `json:"failure,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Stages       Progress                 `json:"stages"`
	FinishedAt   time.Time                `json:"finished_at"`
}
