package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/torch"

	"github.com/google/uuid"
)

// Controller owns the scan session state and the torch toggle.
// All methods are safe for concurrent use.
type Controller struct {
	lookuper       Lookuper
	torch          torch.Torch
	logger         logger.ILogger
	listeners      []Listener
	torchListeners []TorchListener

	mu          sync.Mutex
	id          string
	phase       Phase
	code        string
	requestID   uint64 // request whose result may still be applied, 0 if none
	lastRequest uint64
	record      *entity.ProductRecord
	failure     *Failure
	version     uint64
	updatedAt   time.Time
	torchOn     bool
	torchErr    string

	inflight   sync.WaitGroup
	root       context.Context
	cancelRoot context.CancelFunc
}

type Option func(*Controller)

// WithListener registers fn to receive every snapshot after a transition.
// Listeners run on the goroutine that caused the transition and must not block.
func WithListener(fn Listener) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, fn)
	}
}

func WithTorchListener(fn TorchListener) Option {
	return func(c *Controller) {
		c.torchListeners = append(c.torchListeners, fn)
	}
}

func NewController(lookuper Lookuper, t torch.Torch, log logger.ILogger, opts ...Option) *Controller {
	if t == nil {
		t = torch.Noop{}
	}
	c := &Controller{
		lookuper:  lookuper,
		torch:     t,
		logger:    log,
		id:        uuid.NewString(),
		phase:     PhaseIdle,
		updatedAt: time.Now(),
	}
	c.root, c.cancelRoot = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnCodeScanned captures code. It is rejected while a lookup is outstanding;
// from any other phase it replaces whatever the session held.
func (c *Controller) OnCodeScanned(code string) error {
	if code == "" {
		return apperr.InvalidInput("scanned code is empty")
	}

	c.mu.Lock()
	if c.phase == PhaseAwaitingResponse {
		pending := c.code
		c.mu.Unlock()
		c.logger.Warn(constant.SessionLoggerModule, "Scan rejected while lookup in flight", map[string]interface{}{
			"code":    code,
			"pending": pending,
		})
		return apperr.Busy(fmt.Sprintf("lookup for %q still in flight", pending))
	}

	c.phase = PhaseCodeCaptured
	c.code = code
	c.requestID = 0
	c.record = nil
	c.failure = nil
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Info(constant.SessionLoggerModule, "Code captured", map[string]interface{}{"code": code})
	c.notify(snap)
	return nil
}

// SubmitLookup starts the lookup for the captured code and returns its
// request id. The lookup outlives ctx's cancellation; use Reset to abandon it
// and Shutdown to cancel it.
func (c *Controller) SubmitLookup(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	switch c.phase {
	case PhaseCodeCaptured:
	case PhaseAwaitingResponse:
		pending := c.code
		c.mu.Unlock()
		return 0, apperr.Busy(fmt.Sprintf("lookup for %q still in flight", pending))
	default:
		phase := c.phase
		c.mu.Unlock()
		return 0, apperr.InvalidInput(fmt.Sprintf("no captured code to submit (session is %s)", phase))
	}

	c.lastRequest++
	id := c.lastRequest
	code := c.code
	c.requestID = id
	c.phase = PhaseAwaitingResponse
	snap := c.commitLocked()
	c.inflight.Add(1)
	c.mu.Unlock()

	c.logger.Info(constant.SessionLoggerModule, "Lookup submitted", map[string]interface{}{
		"code":       code,
		"request_id": id,
	})
	c.notify(snap)

	go c.runLookup(context.WithoutCancel(ctx), id, code)
	return id, nil
}

func (c *Controller) runLookup(parent context.Context, id uint64, code string) {
	defer c.inflight.Done()
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(c.root, cancel)
	defer stop()

	record, err := c.lookuper.Lookup(ctx, code)
	if c.root.Err() != nil {
		c.logger.Info(constant.SessionLoggerModule, "Discarding lookup cancelled by shutdown", map[string]interface{}{
			"code":       code,
			"request_id": id,
		})
		return
	}
	c.complete(id, code, record, err)
}

func (c *Controller) complete(id uint64, code string, record *entity.ProductRecord, err error) {
	c.mu.Lock()
	if c.phase != PhaseAwaitingResponse || c.requestID != id || c.code != code {
		c.mu.Unlock()
		c.logger.Info(constant.SessionLoggerModule, "Discarding stale lookup result", map[string]interface{}{
			"code":       code,
			"request_id": id,
		})
		return
	}

	if err == nil && record == nil {
		err = apperr.Malformed("lookup returned no record", nil)
	}
	if err != nil {
		appErr := apperr.As(err, apperr.KindNetwork)
		c.phase = PhaseFailed
		c.failure = &Failure{Kind: appErr.Kind, StatusCode: appErr.StatusCode, Message: appErr.Error()}
	} else {
		c.phase = PhaseResolved
		c.record = record
	}
	c.requestID = 0
	snap := c.commitLocked()
	c.mu.Unlock()

	if snap.Failure != nil {
		c.logger.Warn(constant.SessionLoggerModule, "Lookup failed", map[string]interface{}{
			"code":       code,
			"request_id": id,
			"kind":       snap.Failure.Kind.String(),
			"error":      snap.Failure.Message,
		})
	} else {
		c.logger.Info(constant.SessionLoggerModule, "Lookup resolved", map[string]interface{}{
			"code":       code,
			"request_id": id,
		})
	}
	c.notify(snap)
}

// Reset returns to idle from any phase. A lookup still in flight keeps
// running but its result is discarded when it arrives.
func (c *Controller) Reset() {
	c.mu.Lock()
	abandoned := c.requestID
	c.phase = PhaseIdle
	c.code = ""
	c.requestID = 0
	c.record = nil
	c.failure = nil
	snap := c.commitLocked()
	c.mu.Unlock()

	c.logger.Info(constant.SessionLoggerModule, "Session reset", map[string]interface{}{
		"abandoned_request_id": abandoned,
	})
	c.notify(snap)
}

// SetTorch switches the light. Failures are returned to the caller and never
// touch the session phase.
func (c *Controller) SetTorch(ctx context.Context, enabled bool) error {
	var err error
	if !c.torch.IsTorchAvailable() {
		err = apperr.Hardware("torch not available", torch.ErrUnavailable)
	} else if setErr := c.torch.SetTorch(ctx, enabled); setErr != nil {
		err = apperr.Hardware("could not switch torch", setErr)
	}

	c.mu.Lock()
	if err != nil {
		c.torchErr = err.Error()
	} else {
		c.torchOn = enabled
		c.torchErr = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn(constant.SessionLoggerModule, "Torch request failed", map[string]interface{}{
			"enabled": enabled,
			"error":   err.Error(),
		})
	}

	status := c.TorchStatus()
	for _, fn := range c.torchListeners {
		fn(status)
	}
	return err
}

func (c *Controller) TorchStatus() TorchStatus {
	available := c.torch.IsTorchAvailable()
	c.mu.Lock()
	defer c.mu.Unlock()
	return TorchStatus{Available: available, Enabled: c.torchOn, LastError: c.torchErr}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until every lookup goroutine has returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Shutdown waits for outstanding lookups until ctx is done. On expiry it
// cancels them, abandoned ones included, and returns ctx.Err() without
// waiting further; their results are discarded.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.cancelRoot()
		return ctx.Err()
	}
}

func (c *Controller) commitLocked() Snapshot {
	c.version++
	c.updatedAt = time.Now()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: c.id,
		Version:   c.version,
		Phase:     c.phase,
		Code:      c.code,
		Record:    c.record,
		UpdatedAt: c.updatedAt,
	}
	if c.phase == PhaseAwaitingResponse {
		snap.RequestID = c.requestID
	}
	if c.failure != nil {
		failure := *c.failure
		snap.Failure = &failure
	}
	return snap
}

func (c *Controller) notify(snap Snapshot) {
	for _, fn := range c.listeners {
		fn(snap)
	}
}
