package sandbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mnemo-app/mnemo/internal/algorithm"
)

// Default protocol timeouts. The caller-side round trip is deliberately
// longer than the worker-side execution timeout so a worker-side timeout
// response always arrives before the caller stops waiting.
const (
	DefaultStartupTimeout = 10 * time.Second
	DefaultCallTimeout    = 6 * time.Second
	DefaultExecTimeout    = 5 * time.Second
	defaultQueueSize      = 64
)

// Config configures an Executor.
type Config struct {
	// StartupTimeout bounds the wait for the worker's ready signal.
	StartupTimeout time.Duration

	// CallTimeout is the caller-side round-trip timeout.
	CallTimeout time.Duration

	// ExecTimeout is the worker-side wall-clock execution timeout.
	ExecTimeout time.Duration

	// Disabled skips starting the worker entirely. The executor reports
	// unavailable and the plugin manager uses its unsafe fallback.
	Disabled bool
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		StartupTimeout: DefaultStartupTimeout,
		CallTimeout:    DefaultCallTimeout,
		ExecTimeout:    DefaultExecTimeout,
	}
}

// entry is one registered algorithm: its source text is read once at
// registration time and cached, never re-read per call.
type entry struct {
	ownerID string
	localID string
	kind    algorithm.Kind
	name    string
	source  string
}

// callResult carries the outcome of one round trip back to the caller.
type callResult struct {
	value any
	err   error
}

// pendingRequest is one outstanding execution call, destroyed on response,
// timeout, or worker crash.
type pendingRequest struct {
	done  chan callResult
	timer *time.Timer
}

// logEntry is an out-of-band console message from sandboxed code.
type logEntry struct {
	key  string
	text string
}

// Executor owns the sandbox worker's lifecycle and multiplexes concurrent
// execution requests onto it via correlation ids.
type Executor struct {
	cfg Config
	log zerolog.Logger

	requests chan *request
	resps    chan response
	logs     chan logEntry
	ready    chan struct{}
	done     chan struct{}

	nextID atomic.Uint64

	mu         sync.Mutex
	pending    map[uint64]*pendingRequest
	algorithms map[string]*entry
	available  bool
	closeOnce  sync.Once
}

// NewExecutor creates an executor. Call Initialize before use.
func NewExecutor(cfg Config, log zerolog.Logger) *Executor {
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = DefaultStartupTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = DefaultExecTimeout
	}
	return &Executor{
		cfg:        cfg,
		log:        log.With().Str("component", "sandbox").Logger(),
		requests:   make(chan *request, defaultQueueSize),
		resps:      make(chan response, defaultQueueSize),
		logs:       make(chan logEntry, defaultQueueSize),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		pending:    make(map[uint64]*pendingRequest),
		algorithms: make(map[string]*entry),
	}
}

// Initialize spawns the worker and waits for its ready signal. A worker that
// cannot start degrades the executor to unavailable rather than failing: the
// caller checks IsAvailable and picks the fallback path.
func (e *Executor) Initialize() error {
	if e.cfg.Disabled {
		e.log.Warn().Msg("sandbox disabled by configuration; executor unavailable")
		return nil
	}

	go e.workerLoop()
	go e.dispatchLoop()

	select {
	case <-e.ready:
		e.mu.Lock()
		e.available = true
		e.mu.Unlock()
		e.log.Debug().Msg("sandbox worker ready")
		return nil
	case <-time.After(e.cfg.StartupTimeout):
		e.log.Error().Msg("sandbox worker failed to start; executor unavailable")
		return nil
	}
}

// IsAvailable reports whether the worker is running and accepting calls.
func (e *Executor) IsAvailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// RegisterSource caches an algorithm's source text under its composite id
// and returns that id.
func (e *Executor) RegisterSource(kind algorithm.Kind, ownerID, localID, name, source string) string {
	key := algorithm.ComposeID(kind, algorithm.SourcePlugin, ownerID, localID)
	e.mu.Lock()
	e.algorithms[key] = &entry{
		ownerID: ownerID,
		localID: localID,
		kind:    kind,
		name:    name,
		source:  source,
	}
	e.mu.Unlock()
	return key
}

// UnregisterOwner drops every cached algorithm belonging to ownerID. Calls
// already in flight are not cancelled; only new registrations stop pointing
// at them.
func (e *Executor) UnregisterOwner(ownerID string) {
	e.mu.Lock()
	for key, ent := range e.algorithms {
		if ent.ownerID == ownerID {
			delete(e.algorithms, key)
		}
	}
	e.mu.Unlock()
}

// Call invokes the exported function fn of the algorithm registered under
// key, passing plain serializable args, and waits for the response, a
// timeout, or a crash.
func (e *Executor) Call(ctx context.Context, key, fn string, args []any) (any, error) {
	e.mu.Lock()
	if !e.available {
		e.mu.Unlock()
		return nil, ErrUnavailable
	}
	ent, ok := e.algorithms[key]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, key)
	}

	id := e.nextID.Add(1)
	p := &pendingRequest{done: make(chan callResult, 1)}
	p.timer = time.AfterFunc(e.cfg.CallTimeout, func() {
		e.resolve(id, nil, ErrCallTimeout)
	})
	e.pending[id] = p
	e.mu.Unlock()

	req := &request{id: id, key: key, fn: fn, source: ent.source, args: args}
	select {
	case e.requests <- req:
	case <-e.done:
		e.resolve(id, nil, ErrClosed)
	case <-ctx.Done():
		e.resolve(id, nil, ctx.Err())
	}

	select {
	case res := <-p.done:
		return res.value, res.err
	case <-ctx.Done():
		e.resolve(id, nil, ctx.Err())
		res := <-p.done
		return res.value, res.err
	}
}

// resolve completes one pending request exactly once and removes it.
func (e *Executor) resolve(id uint64, value any, err error) {
	e.mu.Lock()
	p, ok := e.pending[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.pending, id)
	e.mu.Unlock()

	p.timer.Stop()
	p.done <- callResult{value: value, err: err}
}

// PendingCount returns the number of outstanding requests.
func (e *Executor) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// workerLoop is the single goroutine that owns all Lua execution. A panic
// that escapes the per-call recovery counts as a worker crash.
func (e *Executor) workerLoop() {
	defer func() {
		if r := recover(); r != nil {
			e.crash(fmt.Errorf("sandbox: worker crashed: %v", r))
		}
	}()

	// Probe the runtime before signalling ready.
	if _, err := e.runRequest(&request{fn: "probe", source: "function probe() return 1 end"}); err != nil {
		e.log.Error().Err(err).Msg("sandbox runtime probe failed")
		return
	}
	close(e.ready)

	for {
		select {
		case <-e.done:
			return
		case req := <-e.requests:
			value, err := e.runRequest(req)
			select {
			case e.resps <- response{id: req.id, value: value, err: err}:
			case <-e.done:
				return
			}
		}
	}
}

// dispatchLoop matches worker responses to pending requests by correlation
// id and forwards sandbox console output to the host log.
func (e *Executor) dispatchLoop() {
	for {
		select {
		case <-e.done:
			return
		case resp := <-e.resps:
			e.resolve(resp.id, resp.value, resp.err)
		case le := <-e.logs:
			e.log.Info().Str("tag", "[Plugin]").Str("algorithm", le.key).Msg(le.text)
		}
	}
}

// forwardLog queues a console message from sandboxed code. Messages are
// dropped rather than blocking the worker when the host cannot keep up.
func (e *Executor) forwardLog(key, text string) {
	select {
	case e.logs <- logEntry{key: key, text: text}:
	default:
	}
}

// crash rejects every pending request with the crash reason and marks the
// executor unavailable. It does not restart the worker.
func (e *Executor) crash(reason error) {
	e.mu.Lock()
	e.available = false
	orphans := e.pending
	e.pending = make(map[uint64]*pendingRequest)
	e.mu.Unlock()

	e.log.Error().Err(reason).Int("pending", len(orphans)).Msg("sandbox worker crashed")
	for _, p := range orphans {
		p.timer.Stop()
		p.done <- callResult{err: reason}
	}
}

// Close stops the executor. Pending requests are rejected with ErrClosed.
func (e *Executor) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.available = false
		orphans := e.pending
		e.pending = make(map[uint64]*pendingRequest)
		e.mu.Unlock()

		close(e.done)
		for _, p := range orphans {
			p.timer.Stop()
			p.done <- callResult{err: ErrClosed}
		}
	})
}
