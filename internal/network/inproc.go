package network

import (
	"fmt"
	"sync"
	"time"

	"github.com/fluentlang/fluent/internal/status"
)

// InprocContext is a shared, in-process registry of bound endpoints,
// mirroring the mutex-guarded handler-map shape of a classic in-process
// event bus: one map keyed by topic (here, endpoint), guarded by a
// single mutex, with per-endpoint delivery queues instead of per-topic
// handler slices. Tests that host several nodes in one process share one
// InprocContext; the executor itself never reaches across nodes.
type InprocContext struct {
	mu      sync.Mutex
	inboxes map[string]chan Frame
}

// NewInprocContext creates an empty registry.
func NewInprocContext() *InprocContext {
	return &InprocContext{inboxes: make(map[string]chan Frame)}
}

func (c *InprocContext) inbox(endpoint string) chan Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.inboxes[endpoint]
	if !ok {
		ch = make(chan Frame, 256)
		c.inboxes[endpoint] = ch
	}
	return ch
}

// InprocBus is a Bus bound to one endpoint within a shared InprocContext.
// Send looks the destination's inbox up directly in the shared map, so
// delivery is synchronous-enqueue, asynchronous-deliver: Send returns as
// soon as the frame is queued.
type InprocBus struct {
	ctx      *InprocContext
	endpoint string
	inbox    chan Frame
}

// NewInprocBus constructs an unbound bus over ctx; call Bind before use.
func NewInprocBus(ctx *InprocContext) *InprocBus {
	return &InprocBus{ctx: ctx}
}

// Bind registers endpoint as this bus's address within ctx.
func (b *InprocBus) Bind(endpoint string) error {
	if endpoint == "" {
		return status.New(status.ConfigError, "inprocbus: empty endpoint")
	}
	b.endpoint = endpoint
	b.inbox = b.ctx.inbox(endpoint)
	return nil
}

// Send enqueues frame onto dst's inbox, failing if dst has no bound
// listener (a send to an address nothing ever Binds would otherwise
// silently vanish into an unread channel).
func (b *InprocBus) Send(dst string, frame Frame) error {
	b.ctx.mu.Lock()
	target, ok := b.ctx.inboxes[dst]
	b.ctx.mu.Unlock()
	if !ok {
		return status.New(status.NetworkError, "inprocbus: no listener bound at %q", dst)
	}
	select {
	case target <- frame:
		return nil
	default:
		return status.New(status.NetworkError, "inprocbus: inbox full at %q", dst)
	}
}

// Recv waits up to timeout for the next frame addressed to this bus's
// own endpoint.
func (b *InprocBus) Recv(timeout time.Duration) (Frame, bool, error) {
	if b.inbox == nil {
		return Frame{}, false, status.New(status.ConfigError, "inprocbus: Recv before Bind")
	}
	select {
	case f := <-b.inbox:
		return f, true, nil
	case <-time.After(timeout):
		return Frame{}, false, nil
	}
}

var _ fmt.Stringer = (*InprocBus)(nil)

// String reports the bus's bound endpoint, or "<unbound>".
func (b *InprocBus) String() string {
	if b.endpoint == "" {
		return "<unbound>"
	}
	return b.endpoint
}
