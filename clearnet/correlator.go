package clearnet

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultRequestTimeout bounds ordinary id-correlated requests.
	DefaultRequestTimeout = 10 * time.Second

	// SubmissionTimeout bounds settlement submissions (session create,
	// checkpoint, close), which the service acknowledges more slowly.
	SubmissionTimeout = 30 * time.Second
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrConnectionClosed = errors.New("connection closed")
)

type outcome struct {
	resp *Response
	err  error
}

// Call is one pending exchange. Await blocks until the matching response
// arrives, the call times out, or the caller's context ends.
type Call struct {
	id     uint64
	method string
	done   chan outcome
	once   sync.Once
	timer  *time.Timer
	corr   *Correlator
}

func (c *Call) deliver(o outcome) {
	c.once.Do(func() {
		if c.timer != nil {
			c.timer.Stop()
		}
		c.done <- o
	})
}

// Await blocks for the call's outcome. Context cancellation deregisters the
// call so a late response cannot be claimed by a stale waiter.
func (c *Call) Await(ctx context.Context) (*Response, error) {
	select {
	case o := <-c.done:
		if o.err != nil {
			return nil, o.err
		}
		return o.resp, nil
	case <-ctx.Done():
		c.corr.drop(c)
		return nil, ctx.Err()
	}
}

// Cancel deregisters the call without waiting.
func (c *Call) Cancel() {
	c.corr.drop(c)
	c.deliver(outcome{err: context.Canceled})
}

// Correlator routes inbound frames to pending calls. Two modes exist: by
// request id for ordinary exchanges, and by method tag for multi-signer
// envelopes whose acknowledgment does not echo a correlatable id. Method-tag
// matching claims the first unclaimed call registered for that method.
type Correlator struct {
	mu       sync.Mutex
	nextID   uint64
	byID     map[uint64]*Call
	byMethod map[string][]*Call
}

func NewCorrelator() *Correlator {
	return &Correlator{
		byID:     make(map[uint64]*Call),
		byMethod: make(map[string][]*Call),
	}
}

// NextID returns the next monotonically increasing request id for this
// connection.
func (c *Correlator) NextID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	return c.nextID
}

// Register creates an id-correlated pending call.
func (c *Correlator) Register(id uint64, timeout time.Duration) *Call {
	call := c.newCall(id, "", timeout)
	c.mu.Lock()
	c.byID[id] = call
	c.mu.Unlock()
	return call
}

// RegisterSubmission creates a pending call for a multi-signer envelope. The
// acknowledgment is matched on the method tag; an explicit {err:...} frame is
// still matched on the envelope's tuple id, so both indexes carry the call.
func (c *Correlator) RegisterSubmission(id uint64, method string, timeout time.Duration) *Call {
	call := c.newCall(id, method, timeout)
	c.mu.Lock()
	c.byID[id] = call
	c.byMethod[method] = append(c.byMethod[method], call)
	c.mu.Unlock()
	return call
}

func (c *Correlator) newCall(id uint64, method string, timeout time.Duration) *Call {
	call := &Call{
		id:     id,
		method: method,
		done:   make(chan outcome, 1),
		corr:   c,
	}
	call.timer = time.AfterFunc(timeout, func() {
		c.drop(call)
		call.deliver(outcome{err: ErrRequestTimeout})
	})
	return call
}

// Dispatch routes one inbound response to at most one pending call and
// reports whether a call claimed it.
func (c *Correlator) Dispatch(resp *Response) bool {
	c.mu.Lock()
	call, ok := c.byID[resp.RequestID]
	if !ok && resp.Method != "" {
		if waiting := c.byMethod[resp.Method]; len(waiting) > 0 {
			call, ok = waiting[0], true
		}
	}
	if ok {
		c.removeLocked(call)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if resp.Err != nil {
		call.deliver(outcome{err: resp.Err})
	} else {
		call.deliver(outcome{resp: resp})
	}
	return true
}

// FailAll rejects every pending call, used when the connection drops.
func (c *Correlator) FailAll(err error) {
	c.mu.Lock()
	calls := make([]*Call, 0, len(c.byID))
	for _, call := range c.byID {
		calls = append(calls, call)
	}
	for _, waiting := range c.byMethod {
		for _, call := range waiting {
			if _, dup := c.byID[call.id]; !dup {
				calls = append(calls, call)
			}
		}
	}
	c.byID = make(map[uint64]*Call)
	c.byMethod = make(map[string][]*Call)
	c.mu.Unlock()

	for _, call := range calls {
		call.deliver(outcome{err: err})
	}
}

func (c *Correlator) drop(call *Call) {
	c.mu.Lock()
	c.removeLocked(call)
	c.mu.Unlock()
}

func (c *Correlator) removeLocked(call *Call) {
	delete(c.byID, call.id)
	if call.method == "" {
		return
	}
	waiting := c.byMethod[call.method]
	for i, pending := range waiting {
		if pending == call {
			c.byMethod[call.method] = append(waiting[:i], waiting[i+1:]...)
			break
		}
	}
	if len(c.byMethod[call.method]) == 0 {
		delete(c.byMethod, call.method)
	}
}
