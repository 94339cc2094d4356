package store

import (
	"time"
)

// Execution statuses.
const (
	ExecutionRunning = "running"
	ExecutionSuccess = "success"
	ExecutionFailed  = "failed"
)

type Execution struct {
	ID           int64
	Environment  string
	CustomerID   string
	CustomerName string
	TestName     string
	Tester       string
	SessionKey   string
	Status       string
	Failure      string
	ErrorMessage string
	HTTPStatus   int
	CatalogURL   string
	RawResponse  string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// ExecutionEvent is one recorded stage transition, kept for the detail view.
type ExecutionEvent struct {
	ID          int64
	ExecutionID int64
	Stage       string
	Status      string
	CreatedAt   time.Time
}

func (db *DB) CreateExecution(e *Execution) (int64, error) {
	if db.driver == "postgres" {
		var id int64
		err := db.QueryRow(db.Q(`INSERT INTO executions (environment, customer_id, customer_name, test_name, tester) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			e.Environment, e.CustomerID, e.CustomerName, e.TestName, e.Tester).Scan(&id)
		return id, err
	}
	res, err := db.Exec(db.Q(`INSERT INTO executions (environment, customer_id, customer_name, test_name, tester) VALUES (?, ?, ?, ?, ?)`),
		e.Environment, e.CustomerID, e.CustomerName, e.TestName, e.Tester)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) SetExecutionSessionKey(id int64, sessionKey string) error {
	_, err := db.Exec(db.Q(`UPDATE executions SET session_key=? WHERE id=?`), sessionKey, id)
	return err
}

// FinishExecution records the terminal outcome of one attempt.
func (db *DB) FinishExecution(e *Execution) error {
	_, err := db.Exec(db.Q(`UPDATE executions SET session_key=?, status=?, failure=?, error_message=?, http_status=?, catalog_url=?, raw_response=?, finished_at=datetime('now','localtime') WHERE id=?`),
		e.SessionKey, e.Status, e.Failure, e.ErrorMessage, e.HTTPStatus, e.CatalogURL, e.RawResponse, e.ID)
	return err
}

const executionColumns = `id, environment, customer_id, customer_name, test_name, tester, session_key, status, failure, error_message, http_status, catalog_url, raw_response, created_at, finished_at`

func (db *DB) GetExecution(id int64) (*Execution, error) {
	row := db.QueryRow(db.Q(`SELECT `+executionColumns+` FROM executions WHERE id=?`), id)
	return scanExecution(row)
}

func (db *DB) ListExecutions(limit int) ([]*Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(db.Q(`SELECT `+executionColumns+` FROM executions ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var execs []*Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*Execution, error) {
	var e Execution
	var createdAt, finishedAt any
	err := row.Scan(&e.ID, &e.Environment, &e.CustomerID, &e.CustomerName, &e.TestName, &e.Tester,
		&e.SessionKey, &e.Status, &e.Failure, &e.ErrorMessage, &e.HTTPStatus, &e.CatalogURL,
		&e.RawResponse, &createdAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.FinishedAt = parseTimePtr(finishedAt)
	return &e, nil
}

func (db *DB) AddExecutionEvent(executionID int64, stage, status string) error {
	_, err := db.Exec(db.Q(`INSERT INTO execution_events (execution_id, stage, status) VALUES (?, ?, ?)`),
		executionID, stage, status)
	return err
}

func (db *DB) ListExecutionEvents(executionID int64) ([]*ExecutionEvent, error) {
	rows, err := db.Query(db.Q(`SELECT id, execution_id, stage, status, created_at FROM execution_events WHERE execution_id=? ORDER BY id`), executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []*ExecutionEvent
	for rows.Next() {
		var ev ExecutionEvent
		var createdAt any
		if err := rows.Scan(&ev.ID, &ev.ExecutionID, &ev.Stage, &ev.Status, &createdAt); err != nil {
			return nil, err
		}
		ev.CreatedAt = parseTime(createdAt)
		events = append(events, &ev)
	}
	return events, rows.Err()
}
