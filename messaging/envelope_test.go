package messaging

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeEnvelope_ExecutionRequest(t *testing.T) {
	data := []byte(`{
		"msg_type": "execution_request",
		"msg_id": "abc-123",
		"console_id": "ci-pipeline",
		"timestamp": "2026-09-01T12:00:00Z",
		"payload": {
			"environment": "qa",
			"customer_id": "cust1",
			"test_name": "post-deploy smoke",
			"tester": "ci"
		}
	}`)

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.MsgType != MsgExecutionRequest {
		t.Errorf("msg_type = %q, want %q", env.MsgType, MsgExecutionRequest)
	}
	if env.MsgID != "abc-123" {
		t.Errorf("msg_id = %q, want %q", env.MsgID, "abc-123")
	}
	if env.ConsoleID != "ci-pipeline" {
		t.Errorf("console_id = %q, want %q", env.ConsoleID, "ci-pipeline")
	}

	req, ok := env.Payload.(ExecutionRequest)
	if !ok {
		t.Fatalf("payload type = %T, want ExecutionRequest", env.Payload)
	}
	if req.Environment != "qa" {
		t.Errorf("environment = %q, want %q", req.Environment, "qa")
	}
	if req.CustomerID != "cust1" {
		t.Errorf("customer_id = %q, want %q", req.CustomerID, "cust1")
	}
	if req.TestName != "post-deploy smoke" {
		t.Errorf("test_name = %q, want %q", req.TestName, "post-deploy smoke")
	}
	if req.Tester != "ci" {
		t.Errorf("tester = %q, want %q", req.Tester, "ci")
	}
}

func TestDecodeEnvelope_ExecutionResult(t *testing.T) {
	data := []byte(`{
		"msg_type": "execution_result",
		"msg_id": "msg-2",
		"console_id": "console-1",
		"timestamp": "2026-09-01T12:00:05Z",
		"payload": {
			"execution_id": 42,
			"environment": "qa",
			"customer_id": "cust1",
			"session_key": "SESSION_QA_cust1_1700000000000",
			"success": true,
			"http_status": 200,
			"catalog_url": "https://cat.example.com/x",
			"finished_at": "2026-09-01T12:00:05Z"
		}
	}`)

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	res, ok := env.Payload.(ExecutionResult)
	if !ok {
		t.Fatalf("payload type = %T, want ExecutionResult", env.Payload)
	}
	if res.ExecutionID != 42 {
		t.Errorf("execution_id = %d, want 42", res.ExecutionID)
	}
	if !res.Success {
		t.Error("success should be true")
	}
	if res.SessionKey != "SESSION_QA_cust1_1700000000000" {
		t.Errorf("session_key = %q", res.SessionKey)
	}
	if res.CatalogURL != "https://cat.example.com/x" {
		t.Errorf("catalog_url = %q", res.CatalogURL)
	}
}

func TestDecodeEnvelope_UnknownType(t *testing.T) {
	data := []byte(`{
		"msg_type": "bogus",
		"msg_id": "msg-x",
		"console_id": "console-1",
		"timestamp": "2026-09-01T12:00:00Z",
		"payload": {}
	}`)

	_, err := DecodeEnvelope(data)
	if err == nil {
		t.Fatal("expected error for unknown msg_type")
	}
}

func TestDecodeEnvelope_InvalidJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDecodeEnvelope_InvalidPayload(t *testing.T) {
	data := []byte(`{
		"msg_type": "execution_request",
		"msg_id": "msg-y",
		"console_id": "console-1",
		"timestamp": "2026-09-01T12:00:00Z",
		"payload": "not an object"
	}`)

	_, err := DecodeEnvelope(data)
	if err == nil {
		t.Fatal("expected error for invalid payload")
	}
}

func TestNewEnvelope(t *testing.T) {
	payload := ExecutionResult{ExecutionID: 7, Environment: "dev", Success: false, Failure: "dispatch_failed"}
	env := NewEnvelope(MsgExecutionResult, "console-1", payload)

	if env.MsgType != MsgExecutionResult {
		t.Errorf("msg_type = %q, want %q", env.MsgType, MsgExecutionResult)
	}
	if env.ConsoleID != "console-1" {
		t.Errorf("console_id = %q, want %q", env.ConsoleID, "console-1")
	}
	if env.MsgID == "" {
		t.Error("msg_id should not be empty")
	}
	if env.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	res, ok := env.Payload.(ExecutionResult)
	if !ok {
		t.Fatalf("payload type = %T, want ExecutionResult", env.Payload)
	}
	if res.Failure != "dispatch_failed" {
		t.Errorf("failure = %q, want %q", res.Failure, "dispatch_failed")
	}
}

func TestEnvelopeEncode(t *testing.T) {
	env := NewEnvelope(MsgExecutionResult, "console-1", ExecutionResult{
		ExecutionID: 9,
		Environment: "qa",
		Success:     true,
		CatalogURL:  "https://cat.example.com/y",
	})

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal encoded: %v", err)
	}

	if decoded["msg_type"] != "execution_result" {
		t.Errorf("msg_type = %v, want %q", decoded["msg_type"], "execution_result")
	}
	payload, ok := decoded["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map", decoded["payload"])
	}
	if payload["catalog_url"] != "https://cat.example.com/y" {
		t.Errorf("catalog_url = %v", payload["catalog_url"])
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	original := NewEnvelope(MsgExecutionRequest, "ci-pipeline", ExecutionRequest{
		Environment: "dev",
		CustomerID:  "cust9",
		TestName:    "nightly",
		Tester:      "scheduler",
	})

	data, err := original.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.MsgType != original.MsgType {
		t.Errorf("msg_type = %q, want %q", decoded.MsgType, original.MsgType)
	}
	if decoded.ConsoleID != original.ConsoleID {
		t.Errorf("console_id = %q, want %q", decoded.ConsoleID, original.ConsoleID)
	}

	req, ok := decoded.Payload.(ExecutionRequest)
	if !ok {
		t.Fatalf("payload type = %T, want ExecutionRequest", decoded.Payload)
	}
	if req.CustomerID != "cust9" {
		t.Errorf("customer_id = %q, want %q", req.CustomerID, "cust9")
	}
	if req.TestName != "nightly" {
		t.Errorf("test_name = %q, want %q", req.TestName, "nightly")
	}
}

func TestEnvelopeTimestampParsing(t *testing.T) {
	ts := "2026-09-01T12:30:45Z"
	data := []byte(`{
		"msg_type": "execution_request",
		"msg_id": "msg-ts",
		"console_id": "console-1",
		"timestamp": "` + ts + `",
		"payload": {"environment": "dev", "customer_id": "cust1"}
	}`)

	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	expected, _ := time.Parse(time.RFC3339, ts)
	if !env.Timestamp.Equal(expected) {
		t.Errorf("timestamp = %v, want %v", env.Timestamp, expected)
	}
}
