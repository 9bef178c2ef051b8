package voice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultCommandQueueSize  = 256
	DefaultDisconnectTimeout = 8 * time.Second
)

// Config configures a Client. Zero values select defaults.
type Config struct {
	Dialer Dialer
	Codec  Codec
	Logger *slog.Logger

	TickInterval      time.Duration
	DisconnectTimeout time.Duration
	CommandQueueSize  int
	JitterCapacity    int
	EventQueueSize    int
}

// Client is the host-facing handle of one voice session at a time. Its
// methods are safe for concurrent use and never block on network I/O except
// Connect and Disconnect, which wait for the session loop to answer.
type Client struct {
	cfg    Config
	logger *slog.Logger
	bridge *Bridge

	// mu guards the fields below. They are set together and describe the
	// current loop only.
	mu       sync.Mutex
	commands chan command
	done     chan struct{}
	abort    context.CancelFunc
	live     *atomic.Bool
	sink     *sessionSink

	identityMu sync.Mutex
	identity   string
}

func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = FrameInterval
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = DefaultDisconnectTimeout
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = DefaultCommandQueueSize
	}
	return &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		bridge: NewBridge(cfg.EventQueueSize),
	}
}

// OnEvent registers the host callback. It runs on the bridge goroutine.
func (c *Client) OnEvent(fn func(NativeEvent)) {
	c.bridge.SetCallback(fn)
}

// Connect starts a session and blocks until it is connected or failed.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) error {
	c.reconcile()

	c.mu.Lock()
	if c.commands != nil {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	if err := opts.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}

	id, err := parseOrCreateIdentity(opts.Identity)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.setIdentity(id.String())

	commands := make(chan command, c.cfg.CommandQueueSize)
	done := make(chan struct{})
	ready := make(chan error, 1)
	loopCtx, abort := context.WithCancel(context.Background())
	live := &atomic.Bool{}
	sink := &sessionSink{sink: c.bridge}

	c.commands, c.done, c.abort = commands, done, abort
	c.live, c.sink = live, sink
	c.mu.Unlock()

	l := &loop{
		dialer:            c.cfg.Dialer,
		codec:             c.cfg.Codec,
		sink:              sink,
		logger:            c.logger.With("address", opts.Address),
		connected:         live,
		opts:              opts,
		identity:          id,
		commands:          commands,
		ready:             readiness{ch: ready},
		tickInterval:      c.cfg.TickInterval,
		disconnectTimeout: c.cfg.DisconnectTimeout,
		jitterCapacity:    c.cfg.JitterCapacity,
	}
	go func() {
		defer close(done)
		l.run(loopCtx)
	}()

	select {
	case err, ok := <-ready:
		if !ok {
			c.clear(done)
			return ErrWorkerExited
		}
		if err != nil {
			c.logger.Warn("failed to connect", "address", opts.Address, "error", err)
			abort()
			c.clear(done)
			return err
		}
		return nil
	case <-ctx.Done():
		abort()
		c.clear(done)
		return ctx.Err()
	}
}

// Disconnect ends the active session gracefully. It succeeds without effect
// when there is none.
func (c *Client) Disconnect(ctx context.Context, params DisconnectParams) error {
	c.reconcile()

	c.mu.Lock()
	commands, done, abort := c.commands, c.done, c.abort
	c.mu.Unlock()
	if commands == nil {
		return nil
	}

	ack := make(chan error, 1)
	select {
	case commands <- disconnectCmd{message: params.Message, ack: ack}:
	case <-done:
		c.clear(done)
		return ErrWorkerNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	var result error
	select {
	case result = <-ack:
	case <-done:
		select {
		case result = <-ack:
		default:
			result = ErrDisconnectInterrupted
		}
	case <-ctx.Done():
		// The loop is abandoned mid-handshake.
		abort()
		c.clear(done)
		return ctx.Err()
	}

	c.clear(done)
	<-done
	return result
}

// PushFrame queues little-endian s16 mono PCM for encoding. It never blocks.
func (c *Client) PushFrame(pcm []byte) error {
	if len(pcm)%2 != 0 {
		return ErrOddLength
	}

	c.reconcile()

	c.mu.Lock()
	commands, done := c.commands, c.done
	c.mu.Unlock()
	if commands == nil {
		return ErrNotConnected
	}

	select {
	case <-done:
		return ErrBackpressure
	default:
	}

	select {
	case commands <- pushFrameCmd{samples: pcmToSamples(pcm)}:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	live := c.live
	c.mu.Unlock()
	return live != nil && live.Load()
}

// ExportIdentity returns the identity of the latest session, if any.
func (c *Client) ExportIdentity() (string, bool) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()
	return c.identity, c.identity != ""
}

// Close disconnects and stops event delivery.
func (c *Client) Close(ctx context.Context) error {
	err := c.Disconnect(ctx, DisconnectParams{})
	c.bridge.Close()
	return err
}

func (c *Client) setIdentity(s string) {
	c.identityMu.Lock()
	c.identity = s
	c.identityMu.Unlock()
}

// reconcile clears the session state once its loop has finished.
func (c *Client) reconcile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return
	}
	select {
	case <-c.done:
		c.reset()
	default:
	}
}

// clear drops the session state if it still belongs to the loop that
// closes done. The loop may keep running, but nothing it emits after this
// reaches the host.
func (c *Client) clear(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return
	}
	c.reset()
}

// reset must be called with mu held.
func (c *Client) reset() {
	c.sink.retire()
	c.commands, c.done, c.abort = nil, nil, nil
	c.live, c.sink = nil, nil
}
