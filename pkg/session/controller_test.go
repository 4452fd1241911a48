package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"barcode-lookup/internal/constant"
	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
	"barcode-lookup/internal/pkg/logger"
	"barcode-lookup/pkg/lookup"
	"barcode-lookup/pkg/torch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupResult struct {
	record *entity.ProductRecord
	err    error
}

// gatedLookuper blocks every Lookup until the test releases a result for that code.
type gatedLookuper struct {
	mu    sync.Mutex
	gates map[string]chan lookupResult
}

func newGatedLookuper() *gatedLookuper {
	return &gatedLookuper{gates: make(map[string]chan lookupResult)}
}

func (g *gatedLookuper) gate(code string) chan lookupResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[code]
	if !ok {
		ch = make(chan lookupResult, 1)
		g.gates[code] = ch
	}
	return ch
}

func (g *gatedLookuper) Lookup(ctx context.Context, code string) (*entity.ProductRecord, error) {
	r := <-g.gate(code)
	return r.record, r.err
}

func (g *gatedLookuper) release(code string, record *entity.ProductRecord, err error) {
	g.gate(code) <- lookupResult{record: record, err: err}
}

// recordingLogger keeps messages so tests can wait for log-only events.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) add(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
}

func (l *recordingLogger) has(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == message {
			return true
		}
	}
	return false
}

func (l *recordingLogger) Debug(_, message string, _ map[string]interface{}) { l.add(message) }
func (l *recordingLogger) Info(_, message string, _ map[string]interface{})  { l.add(message) }
func (l *recordingLogger) Warn(_, message string, _ map[string]interface{})  { l.add(message) }
func (l *recordingLogger) Error(_, message string, _ map[string]interface{}) { l.add(message) }
func (l *recordingLogger) Sync() error                                       { return nil }

func record(id string) *entity.ProductRecord {
	return &entity.ProductRecord{
		ID:                  id,
		NameEs:              "Producto " + id,
		Reference:           "REF-" + id,
		InternalPackBarcode: "PK-" + id,
		Dun14:               "1" + id,
	}
}

func eventuallyPhase(t *testing.T, c *Controller, phase Phase) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().Phase == phase
	}, 2*time.Second, 5*time.Millisecond)
	return c.Snapshot()
}

func TestOnCodeScannedFromIdle(t *testing.T) {
	for _, code := range []string{"123456789012", "pep", "AB/12", " spaced "} {
		t.Run(code, func(t *testing.T) {
			c := NewController(newGatedLookuper(), nil, logger.NewNopLogger())
			require.NoError(t, c.OnCodeScanned(code))

			snap := c.Snapshot()
			assert.Equal(t, PhaseCodeCaptured, snap.Phase)
			assert.Equal(t, code, snap.Code)
		})
	}
}

func TestOnCodeScannedIgnoresEmpty(t *testing.T) {
	c := NewController(newGatedLookuper(), nil, logger.NewNopLogger())
	before := c.Snapshot()

	err := c.OnCodeScanned("")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Equal(t, before, c.Snapshot())
}

func TestOnCodeScannedReplacesCapturedCode(t *testing.T) {
	c := NewController(newGatedLookuper(), nil, logger.NewNopLogger())
	require.NoError(t, c.OnCodeScanned("first"))
	require.NoError(t, c.OnCodeScanned("second"))
	assert.Equal(t, "second", c.Snapshot().Code)
}

func TestSubmitLookupFromIdleIsInvalid(t *testing.T) {
	c := NewController(newGatedLookuper(), nil, logger.NewNopLogger())

	_, err := c.SubmitLookup(context.Background())
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestSubmitLookupResolves(t *testing.T) {
	stub := newGatedLookuper()
	var mu sync.Mutex
	var phases []Phase
	c := NewController(stub, nil, logger.NewNopLogger(), WithListener(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	}))

	want := record("123456789012")
	require.NoError(t, c.OnCodeScanned("123456789012"))
	id, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	awaiting := c.Snapshot()
	assert.Equal(t, PhaseAwaitingResponse, awaiting.Phase)
	assert.Equal(t, id, awaiting.RequestID)

	stub.release("123456789012", want, nil)
	c.Wait()

	snap := c.Snapshot()
	assert.Equal(t, PhaseResolved, snap.Phase)
	assert.Equal(t, "123456789012", snap.Code)
	assert.Same(t, want, snap.Record)
	assert.Nil(t, snap.Failure)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{PhaseCodeCaptured, PhaseAwaitingResponse, PhaseResolved}, phases)
}

func TestSubmitLookupSurvivesCallerCancellation(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())
	require.NoError(t, c.OnCodeScanned("777"))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.SubmitLookup(ctx)
	require.NoError(t, err)
	cancel()

	stub.release("777", record("777"), nil)
	c.Wait()
	assert.Equal(t, PhaseResolved, c.Snapshot().Phase)
}

func TestBusyWhileAwaiting(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())
	require.NoError(t, c.OnCodeScanned("A"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, apperr.KindBusy, apperr.KindOf(c.OnCodeScanned("B")))
	assert.Equal(t, apperr.KindBusy, apperr.KindOf(c.OnCodeScanned("A")))
	_, err = c.SubmitLookup(context.Background())
	assert.Equal(t, apperr.KindBusy, apperr.KindOf(err))

	snap := c.Snapshot()
	assert.Equal(t, PhaseAwaitingResponse, snap.Phase)
	assert.Equal(t, "A", snap.Code)

	stub.release("A", record("A"), nil)
	c.Wait()
}

func TestFailureKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   apperr.Kind
		wantStatus int
	}{
		{"server", apperr.Server(http.StatusNotFound), apperr.KindServer, http.StatusNotFound},
		{"malformed", apperr.Malformed("missing required fields: dun14", nil), apperr.KindMalformedResponse, 0},
		{"network", apperr.Network(errors.New("connection refused")), apperr.KindNetwork, 0},
		{"foreign error", errors.New("dns failure"), apperr.KindNetwork, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newGatedLookuper()
			c := NewController(stub, nil, logger.NewNopLogger())
			require.NoError(t, c.OnCodeScanned("999"))
			_, err := c.SubmitLookup(context.Background())
			require.NoError(t, err)

			stub.release("999", nil, tt.err)
			c.Wait()

			snap := c.Snapshot()
			assert.Equal(t, PhaseFailed, snap.Phase)
			assert.Equal(t, "999", snap.Code)
			assert.Nil(t, snap.Record)
			require.NotNil(t, snap.Failure)
			assert.Equal(t, tt.wantKind, snap.Failure.Kind)
			assert.Equal(t, tt.wantStatus, snap.Failure.StatusCode)
			assert.NotEmpty(t, snap.Failure.Message)
		})
	}
}

func TestAgainstStubServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segment := strings.TrimPrefix(r.URL.EscapedPath(), "/index.php"+constant.LookupEndpointPath)
		code, err := lookup.UnescapeCode(segment)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch code {
		case "404":
			http.NotFound(w, r)
		case "no-dun14":
			w.Write([]byte(`{"id":"1","name_es":"n","reference":"r","internalPackBarcode":"p"}`))
		default:
			// Echo the code back so the test can match the response to the request.
			w.Write([]byte(`{"id":"` + code + `","name_es":"n","reference":"r","internalPackBarcode":"p","dun14":"d"}`))
		}
	}))
	defer srv.Close()

	client := lookup.NewClient(srv.URL+"/index.php", logger.NewNopLogger())

	run := func(t *testing.T, code string) Snapshot {
		c := NewController(client, nil, logger.NewNopLogger())
		require.NoError(t, c.OnCodeScanned(code))
		_, err := c.SubmitLookup(context.Background())
		require.NoError(t, err)
		c.Wait()
		return c.Snapshot()
	}

	t.Run("server 404", func(t *testing.T) {
		snap := run(t, "404")
		assert.Equal(t, PhaseFailed, snap.Phase)
		require.NotNil(t, snap.Failure)
		assert.Equal(t, apperr.KindServer, snap.Failure.Kind)
		assert.Equal(t, http.StatusNotFound, snap.Failure.StatusCode)
	})

	t.Run("missing dun14", func(t *testing.T) {
		snap := run(t, "no-dun14")
		assert.Equal(t, PhaseFailed, snap.Phase)
		assert.Nil(t, snap.Record)
		require.NotNil(t, snap.Failure)
		assert.Equal(t, apperr.KindMalformedResponse, snap.Failure.Kind)
	})

	t.Run("slash round trip", func(t *testing.T) {
		snap := run(t, "AB/12")
		assert.Equal(t, PhaseResolved, snap.Phase)
		assert.Equal(t, "AB/12", snap.Code)
		require.NotNil(t, snap.Record)
		assert.Equal(t, "AB/12", snap.Record.ID)
	})
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	stub := newGatedLookuper()
	log := &recordingLogger{}
	c := NewController(stub, nil, log)

	require.NoError(t, c.OnCodeScanned("A"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)

	c.Reset()
	require.NoError(t, c.OnCodeScanned("B"))
	idB, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)

	stub.release("A", record("A"), nil)
	require.Eventually(t, func() bool {
		return log.has("Discarding stale lookup result")
	}, 2*time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, PhaseAwaitingResponse, snap.Phase)
	assert.Equal(t, "B", snap.Code)
	assert.Equal(t, idB, snap.RequestID)

	stub.release("B", nil, apperr.Server(http.StatusInternalServerError))
	c.Wait()

	snap = c.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.Equal(t, "B", snap.Code)
	assert.Nil(t, snap.Record)
}

func TestStaleResponseForSameCodeIsDiscarded(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())

	require.NoError(t, c.OnCodeScanned("A"))
	first, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	c.Reset()
	require.NoError(t, c.OnCodeScanned("A"))
	second, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	assert.Greater(t, second, first)

	// Either goroutine may receive either result; only the live request applies one.
	stub.release("A", nil, apperr.Server(http.StatusBadGateway))
	stub.release("A", record("A"), nil)
	c.Wait()

	snap := c.Snapshot()
	assert.Contains(t, []Phase{PhaseResolved, PhaseFailed}, snap.Phase)
	assert.Equal(t, "A", snap.Code)
	assert.Zero(t, snap.RequestID)
}

func TestResetFromAnyPhase(t *testing.T) {
	setups := map[string]func(*testing.T, *Controller, *gatedLookuper){
		"idle": func(*testing.T, *Controller, *gatedLookuper) {},
		"code captured": func(t *testing.T, c *Controller, _ *gatedLookuper) {
			require.NoError(t, c.OnCodeScanned("1"))
		},
		"awaiting": func(t *testing.T, c *Controller, _ *gatedLookuper) {
			require.NoError(t, c.OnCodeScanned("1"))
			_, err := c.SubmitLookup(context.Background())
			require.NoError(t, err)
		},
		"resolved": func(t *testing.T, c *Controller, g *gatedLookuper) {
			require.NoError(t, c.OnCodeScanned("1"))
			_, err := c.SubmitLookup(context.Background())
			require.NoError(t, err)
			g.release("1", record("1"), nil)
			eventuallyPhase(t, c, PhaseResolved)
		},
		"failed": func(t *testing.T, c *Controller, g *gatedLookuper) {
			require.NoError(t, c.OnCodeScanned("1"))
			_, err := c.SubmitLookup(context.Background())
			require.NoError(t, err)
			g.release("1", nil, apperr.Server(http.StatusNotFound))
			eventuallyPhase(t, c, PhaseFailed)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			stub := newGatedLookuper()
			c := NewController(stub, nil, logger.NewNopLogger())
			setup(t, c, stub)
			before := c.Snapshot().Version

			c.Reset()

			snap := c.Snapshot()
			assert.Equal(t, PhaseIdle, snap.Phase)
			assert.Empty(t, snap.Code)
			assert.Nil(t, snap.Record)
			assert.Nil(t, snap.Failure)
			assert.Greater(t, snap.Version, before)

			// Unblock an abandoned lookup; its result must not revive the session.
			stub.release("1", record("1"), nil)
			c.Wait()
			assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
		})
	}
}

func TestNewScanRestartsCycle(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())

	require.NoError(t, c.OnCodeScanned("1"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	stub.release("1", nil, apperr.Server(http.StatusNotFound))
	c.Wait()
	require.Equal(t, PhaseFailed, c.Snapshot().Phase)

	require.NoError(t, c.OnCodeScanned("2"))
	snap := c.Snapshot()
	assert.Equal(t, PhaseCodeCaptured, snap.Phase)
	assert.Nil(t, snap.Failure)

	_, err = c.SubmitLookup(context.Background())
	require.NoError(t, err)
	stub.release("2", record("2"), nil)
	c.Wait()
	require.Equal(t, PhaseResolved, c.Snapshot().Phase)

	require.NoError(t, c.OnCodeScanned("3"))
	assert.Nil(t, c.Snapshot().Record)
}

func TestSubmitFromResolvedIsInvalid(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())
	require.NoError(t, c.OnCodeScanned("1"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	stub.release("1", record("1"), nil)
	c.Wait()

	_, err = c.SubmitLookup(context.Background())
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.Equal(t, PhaseResolved, c.Snapshot().Phase)
}

func TestSetTorch(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		c := NewController(newGatedLookuper(), &torch.Fake{}, logger.NewNopLogger())
		require.NoError(t, c.OnCodeScanned("1"))

		err := c.SetTorch(context.Background(), true)
		assert.Equal(t, apperr.KindHardware, apperr.KindOf(err))
		assert.ErrorIs(t, err, torch.ErrUnavailable)
		assert.Equal(t, PhaseCodeCaptured, c.Snapshot().Phase)
		assert.NotEmpty(t, c.TorchStatus().LastError)
	})

	t.Run("lock failure", func(t *testing.T) {
		fake := &torch.Fake{Available: true, Err: errors.New("device busy")}
		c := NewController(newGatedLookuper(), fake, logger.NewNopLogger())

		err := c.SetTorch(context.Background(), true)
		assert.Equal(t, apperr.KindHardware, apperr.KindOf(err))
		assert.False(t, c.TorchStatus().Enabled)
		assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
	})

	t.Run("toggle", func(t *testing.T) {
		fake := &torch.Fake{Available: true}
		var seen []TorchStatus
		c := NewController(newGatedLookuper(), fake, logger.NewNopLogger(), WithTorchListener(func(s TorchStatus) {
			seen = append(seen, s)
		}))
		before := c.Snapshot()

		require.NoError(t, c.SetTorch(context.Background(), true))
		assert.True(t, c.TorchStatus().Enabled)
		require.NoError(t, c.SetTorch(context.Background(), false))

		status := c.TorchStatus()
		assert.True(t, status.Available)
		assert.False(t, status.Enabled)
		assert.Empty(t, status.LastError)
		assert.Equal(t, []bool{true, false}, fake.Calls)
		assert.Len(t, seen, 2)
		// Torch changes never create session transitions.
		assert.Equal(t, before.Version, c.Snapshot().Version)
	})

	t.Run("does not disturb lookup", func(t *testing.T) {
		stub := newGatedLookuper()
		fake := &torch.Fake{Available: true, Err: errors.New("lock failed")}
		c := NewController(stub, fake, logger.NewNopLogger())
		require.NoError(t, c.OnCodeScanned("1"))
		_, err := c.SubmitLookup(context.Background())
		require.NoError(t, err)

		assert.Error(t, c.SetTorch(context.Background(), true))
		assert.Equal(t, PhaseAwaitingResponse, c.Snapshot().Phase)

		stub.release("1", record("1"), nil)
		c.Wait()
		assert.Equal(t, PhaseResolved, c.Snapshot().Phase)
	})
}

func TestVersionsIncrease(t *testing.T) {
	var mu sync.Mutex
	var versions []uint64
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger(), WithListener(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
	}))

	require.NoError(t, c.OnCodeScanned("1"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	stub.release("1", record("1"), nil)
	c.Wait()
	c.Reset()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 4)
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1])
	}
}

func TestShutdownCancelsAbandonedLookup(t *testing.T) {
	reached := make(chan struct{}, 1)
	cancelled := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached <- struct{}{}
		<-r.Context().Done()
		cancelled <- struct{}{}
	}))
	defer srv.Close()

	log := &recordingLogger{}
	c := NewController(lookup.NewClient(srv.URL+"/index.php", logger.NewNopLogger()), nil, log)
	require.NoError(t, c.OnCodeScanned("123"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)
	<-reached
	c.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = c.Shutdown(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request was not cancelled")
	}
	c.Wait()
	assert.True(t, log.has("Discarding lookup cancelled by shutdown"))
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}

func TestShutdownWaitsForLookup(t *testing.T) {
	stub := newGatedLookuper()
	c := NewController(stub, nil, logger.NewNopLogger())
	require.NoError(t, c.OnCodeScanned("A"))
	_, err := c.SubmitLookup(context.Background())
	require.NoError(t, err)

	go stub.release("A", record("A"), nil)
	require.NoError(t, c.Shutdown(context.Background()))
	assert.Equal(t, PhaseResolved, c.Snapshot().Phase)
}
