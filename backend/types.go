package backend

import "time"

// Audit-log directions.
const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Destinations the orchestrator's poll predicates care about. The backend
// logs many more; everything else is carried through untouched.
const (
	DestAuthService    = "Auth Service"
	DestMuleService    = "Mule Service"
	DestCatalogService = "Catalog Service"
)

// NetworkRequest is one backend-owned audit entry. The console only ever
// reads these; the backend owns their lifecycle.
type NetworkRequest struct {
	ID           int64     `json:"id"`
	SessionKey   string    `json:"sessionKey"`
	Direction    string    `json:"direction"`
	Destination  string    `json:"destination"`
	Success      bool      `json:"success"`
	ResponseBody string    `json:"responseBody"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the backend's record of one PunchOut session.
type Session struct {
	SessionKey  string `json:"sessionKey"`
	Environment string `json:"environment"`
	CustomerID  string `json:"customerId"`
	Catalog     string `json:"catalog"`
	Status      string `json:"status"`
}

// TestRecord is the persisted outcome of one console execution, written to
// the backend's punchout-tests collection.
type TestRecord struct {
	TestName    string `json:"testName"`
	Environment string `json:"environment"`
	Tester      string `json:"tester"`
	TestDate    string `json:"testDate"`
	Status      string `json:"status"`
	SessionKey  string `json:"sessionKey"`
}

const (
	TestStatusSuccess = "SUCCESS"
	TestStatusFailed  = "FAILED"
)
