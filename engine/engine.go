package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"punchlab/backend"
	"punchlab/config"
	"punchlab/gateway"
	"punchlab/messaging"
	"punchlab/punchout"
	"punchlab/redirect"
	"punchlab/store"
)

type LogFunc func(format string, args ...any)

// ErrNoActiveRedirect is returned when a redirect override arrives for an
// execution with no pending countdown.
var ErrNoActiveRedirect = errors.New("no active redirect for execution")

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Gateway    *gateway.Client
	Templates  punchout.TemplateSource
	Backend    *backend.Client
	MsgClient  *messaging.Client
	LogFunc    LogFunc
}

// ExecutionRequest is one operator (or remote) request to run a test.
type ExecutionRequest struct {
	Environment string
	CustomerID  string
	TestName    string
	Tester      string
}

type Engine struct {
	cfg          *config.Config
	configPath   string
	db           *store.DB
	gateway      *gateway.Client
	templates    punchout.TemplateSource
	backend      *backend.Client
	msgClient    *messaging.Client
	runner       *punchout.Runner
	Events       *EventBus
	logFn        LogFunc
	stopChan     chan struct{}
	msgConnected bool

	mu        sync.Mutex
	redirects map[int64]*redirect.Scheduler
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		gateway:    c.Gateway,
		templates:  c.Templates,
		backend:    c.Backend,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
		redirects:  make(map[int64]*redirect.Scheduler),
	}

	pollerCfg := c.AppConfig.Poller
	poller := punchout.NewPoller(c.Backend, pollerCfg.PreDelay, pollerCfg.Interval, pollerCfg.MaxAttempts)
	e.runner = punchout.NewRunner(
		punchout.NewSynthesizer(c.Templates),
		c.Gateway,
		poller,
		c.Backend,
		&punchoutEmitter{bus: e.Events},
	)
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()
	e.checkConnectionStatus()
	go e.connectionHealthLoop()
	e.logFn("engine: started")
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	e.mu.Lock()
	schedulers := make([]*redirect.Scheduler, 0, len(e.redirects))
	for _, s := range e.redirects {
		schedulers = append(schedulers, s)
	}
	e.mu.Unlock()
	for _, s := range schedulers {
		s.Cancel()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                      { return e.db }
func (e *Engine) AppConfig() *config.Config          { return e.cfg }
func (e *Engine) ConfigPath() string                 { return e.configPath }
func (e *Engine) Gateway() *gateway.Client           { return e.gateway }
func (e *Engine) Templates() punchout.TemplateSource { return e.templates }
func (e *Engine) Backend() *backend.Client           { return e.backend }
func (e *Engine) MsgClient() *messaging.Client       { return e.msgClient }

// StartExecution records a new execution and launches the attempt in the
// background. The returned ID identifies the run in the history store and in
// every event the attempt emits.
func (e *Engine) StartExecution(req ExecutionRequest) (int64, error) {
	customer := e.loadCustomer(req.CustomerID)

	id, err := e.db.CreateExecution(&store.Execution{
		Environment:  req.Environment,
		CustomerID:   req.CustomerID,
		CustomerName: customer.Name,
		TestName:     req.TestName,
		Tester:       req.Tester,
	})
	if err != nil {
		return 0, err
	}

	e.Events.Emit(Event{Type: EventExecutionStarted, Payload: ExecutionStartedEvent{
		ExecutionID:  id,
		Environment:  req.Environment,
		CustomerID:   req.CustomerID,
		CustomerName: customer.Name,
		TestName:     req.TestName,
		Tester:       req.Tester,
	}})

	go e.runner.Execute(context.Background(), id, req.Environment, customer)
	return id, nil
}

// PreviewPayload renders the setup document an attempt would dispatch,
// without sending it. Each call mints a fresh session key.
func (e *Engine) PreviewPayload(ctx context.Context, environment, customerID string) (payload, sessionKey string) {
	return punchout.NewSynthesizer(e.templates).Synthesize(ctx, environment, e.loadCustomer(customerID))
}

// loadCustomer fills in registry details when the customer is known locally;
// an unregistered ID still runs, with the identity fields left blank.
func (e *Engine) loadCustomer(customerID string) punchout.Customer {
	customer := punchout.Customer{ID: customerID}
	if c, err := e.db.GetCustomer(customerID); err == nil {
		customer.Name = c.Name
		customer.BuyerID = c.BuyerID
		customer.Domain = c.Domain
	}
	return customer
}

// HandleExecutionRequest satisfies messaging.InboundHandler so remote
// integrations can trigger runs over the requests topic.
func (e *Engine) HandleExecutionRequest(env *messaging.Envelope, req messaging.ExecutionRequest) {
	id, err := e.StartExecution(ExecutionRequest{
		Environment: req.Environment,
		CustomerID:  req.CustomerID,
		TestName:    req.TestName,
		Tester:      req.Tester,
	})
	if err != nil {
		e.logFn("engine: remote execution request %s: %v", env.MsgID, err)
		return
	}
	e.logFn("engine: execution %d started by remote request %s", id, env.MsgID)
}

// --- Redirect overrides ---

func (e *Engine) RedirectNow(executionID int64) error {
	s := e.takeRedirect(executionID)
	if s == nil {
		return ErrNoActiveRedirect
	}
	s.NavigateNow()
	return nil
}

func (e *Engine) RedirectOpenNew(executionID int64) error {
	s := e.takeRedirect(executionID)
	if s == nil {
		return ErrNoActiveRedirect
	}
	s.OpenNewTab()
	return nil
}

func (e *Engine) RedirectCancel(executionID int64) error {
	s := e.takeRedirect(executionID)
	if s == nil {
		return ErrNoActiveRedirect
	}
	s.Cancel()
	return nil
}

func (e *Engine) takeRedirect(executionID int64) *redirect.Scheduler {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redirects[executionID]
}

func (e *Engine) dropRedirect(executionID int64) {
	e.mu.Lock()
	delete(e.redirects, executionID)
	e.mu.Unlock()
}

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureGateway applies gateway config changes live.
func (e *Engine) ReconfigureGateway() {
	e.gateway.Reconfigure(e.cfg.Gateway.BaseURL, e.cfg.Gateway.Timeout)
	e.logFn("engine: gateway reconfigured (%s)", e.cfg.Gateway.BaseURL)
}

// ReconfigureBackend applies backend API config changes live.
func (e *Engine) ReconfigureBackend() {
	e.backend.Reconfigure(e.cfg.API.BaseURL, e.cfg.API.Timeout)
	e.logFn("engine: backend reconfigured (%s)", e.cfg.API.BaseURL)
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
