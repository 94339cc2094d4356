package store

import (
	"os"
	"path/filepath"
	"testing"

	"punchlab/config"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

// --- Execution tests ---

func TestExecutionLifecycle(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateExecution(&Execution{
		Environment:  "dev",
		CustomerID:   "cust1",
		CustomerName: "Acme",
		TestName:     "smoke",
		Tester:       "alice",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetExecution(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ExecutionRunning {
		t.Errorf("Status = %q, want running", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("FinishedAt should be nil while running")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}

	if err := db.SetExecutionSessionKey(id, "SESSION_DEV_cust1_1"); err != nil {
		t.Fatalf("set session key: %v", err)
	}

	err = db.FinishExecution(&Execution{
		ID:          id,
		SessionKey:  "SESSION_DEV_cust1_1",
		Status:      ExecutionSuccess,
		HTTPStatus:  200,
		CatalogURL:  "https://cat.example.com/x",
		RawResponse: "<cXML/>",
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err = db.GetExecution(id)
	if err != nil {
		t.Fatalf("get after finish: %v", err)
	}
	if got.Status != ExecutionSuccess {
		t.Errorf("Status = %q, want success", got.Status)
	}
	if got.SessionKey != "SESSION_DEV_cust1_1" {
		t.Errorf("SessionKey = %q", got.SessionKey)
	}
	if got.CatalogURL != "https://cat.example.com/x" {
		t.Errorf("CatalogURL = %q", got.CatalogURL)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}

func TestExecutionFailureFields(t *testing.T) {
	db := testDB(t)

	id, _ := db.CreateExecution(&Execution{Environment: "qa", CustomerID: "cust2"})
	err := db.FinishExecution(&Execution{
		ID:           id,
		Status:       ExecutionFailed,
		Failure:      "poll_exhausted",
		ErrorMessage: "no catalog confirmation after 10 poll attempts",
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, _ := db.GetExecution(id)
	if got.Failure != "poll_exhausted" {
		t.Errorf("Failure = %q", got.Failure)
	}
	if got.ErrorMessage == "" {
		t.Error("ErrorMessage should be preserved")
	}
}

func TestListExecutionsNewestFirst(t *testing.T) {
	db := testDB(t)

	first, _ := db.CreateExecution(&Execution{Environment: "dev", CustomerID: "a"})
	second, _ := db.CreateExecution(&Execution{Environment: "dev", CustomerID: "b"})

	execs, err := db.ListExecutions(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(execs) != 2 {
		t.Fatalf("len = %d, want 2", len(execs))
	}
	if execs[0].ID != second || execs[1].ID != first {
		t.Errorf("order = [%d, %d], want newest first", execs[0].ID, execs[1].ID)
	}
}

func TestExecutionEvents(t *testing.T) {
	db := testDB(t)

	id, _ := db.CreateExecution(&Execution{Environment: "dev", CustomerID: "cust1"})
	for _, ev := range []struct{ stage, status string }{
		{"parsing", "loading"},
		{"parsing", "success"},
		{"auth", "loading"},
		{"auth", "error"},
	} {
		if err := db.AddExecutionEvent(id, ev.stage, ev.status); err != nil {
			t.Fatalf("add event: %v", err)
		}
	}

	events, err := db.ListExecutionEvents(id)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len = %d, want 4", len(events))
	}
	if events[0].Stage != "parsing" || events[3].Status != "error" {
		t.Errorf("events out of order: %+v", events)
	}
}

// --- Customer tests ---

func TestCustomerCRUD(t *testing.T) {
	db := testDB(t)

	id, err := db.CreateCustomer(&Customer{CustomerID: "cust1", Name: "Acme", BuyerID: "buyer-9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetCustomer("cust1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Acme" || got.BuyerID != "buyer-9" {
		t.Errorf("got = %+v", got)
	}
	if got.Domain != "NetworkID" {
		t.Errorf("Domain = %q, want the default", got.Domain)
	}

	got.Name = "Acme Corp"
	if err := db.UpdateCustomer(got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := db.GetCustomer("cust1")
	if got2.Name != "Acme Corp" {
		t.Errorf("Name after update = %q", got2.Name)
	}

	if err := db.DeleteCustomer("cust1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetCustomer("cust1"); err == nil {
		t.Error("get after delete should fail")
	}
}

func TestCustomerDuplicateID(t *testing.T) {
	db := testDB(t)

	if _, err := db.CreateCustomer(&Customer{CustomerID: "cust1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.CreateCustomer(&Customer{CustomerID: "cust1"}); err == nil {
		t.Error("duplicate customer_id should fail")
	}
}

// --- Outbox tests ---

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueOutbox("punchlab.results", []byte(`{"ok":true}`), "execution_result", "console-1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msgs, err := db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Topic != "punchlab.results" || m.MsgType != "execution_result" || m.ConsoleID != "console-1" {
		t.Errorf("msg = %+v", m)
	}

	if err := db.IncrementOutboxRetries(m.ID); err != nil {
		t.Fatalf("retries: %v", err)
	}
	if err := db.AckOutbox(m.ID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	msgs, _ = db.ListPendingOutbox(10)
	if len(msgs) != 0 {
		t.Errorf("pending after ack = %d, want 0", len(msgs))
	}
}

// --- Admin user tests ---

func TestAdminUsers(t *testing.T) {
	db := testDB(t)

	exists, err := db.AdminUserExists()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("fresh db should have no admin users")
	}

	if err := db.CreateAdminUser("admin", "hash"); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, err := db.GetAdminUser("admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q", u.PasswordHash)
	}

	exists, _ = db.AdminUserExists()
	if !exists {
		t.Error("exists should be true after create")
	}
}
