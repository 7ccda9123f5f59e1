package engine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mpvkit/internal/ipc"
)

// Response is the payload of a successful command. Skipped is set when the
// engine never became ready within the grace period and nothing was sent.
type Response struct {
	Data    json.RawMessage
	Skipped bool
}

type result struct {
	resp Response
	err  error
}

type pendingRequest struct {
	id      int64
	command string
	done    chan result
	timer   *time.Timer
}

// correlator matches responses to outstanding requests by id.
type correlator struct {
	mu      sync.Mutex
	pending map[int64]*pendingRequest
	closed  error
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[int64]*pendingRequest)}
}

// register tracks a request and arms its timeout. The timer is created under
// the lock so completion always observes it. Once the correlator is closed
// register returns the close error and tracks nothing.
func (c *correlator) register(id int64, command string, timeout time.Duration) (*pendingRequest, error) {
	req := &pendingRequest{id: id, command: command, done: make(chan result, 1)}
	c.mu.Lock()
	if c.closed != nil {
		err := c.closed
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = req
	if timeout > 0 {
		req.timer = time.AfterFunc(timeout, func() {
			c.complete(id, func(*pendingRequest) result {
				return result{err: Wrap(ErrTimeout, command, fmt.Sprintf("no response after %s", timeout), nil)}
			})
		})
	}
	c.mu.Unlock()
	return req, nil
}

// resolve settles the request named by a response frame. Unknown ids are
// ignored and reported as false.
func (c *correlator) resolve(frame ipc.Frame) bool {
	return c.complete(frame.RequestID, func(req *pendingRequest) result {
		if frame.Succeeded() {
			return result{resp: Response{Data: frame.Data}}
		}
		return result{err: &CommandError{Command: req.command, Message: frame.Error}}
	})
}

// cancel drops a request without delivering anything.
func (c *correlator) cancel(id int64) {
	c.mu.Lock()
	req, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok && req.timer != nil {
		req.timer.Stop()
	}
}

func (c *correlator) complete(id int64, settle func(*pendingRequest) result) bool {
	c.mu.Lock()
	req, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return false
	}
	if req.timer != nil {
		req.timer.Stop()
	}
	req.done <- settle(req)
	return true
}

// failAll rejects every outstanding request with err.
func (c *correlator) failAll(err error) int {
	c.mu.Lock()
	return c.drainLocked(err)
}

// close rejects every outstanding request with err and refuses later
// registrations with the same error.
func (c *correlator) close(err error) int {
	c.mu.Lock()
	c.closed = err
	return c.drainLocked(err)
}

// drainLocked empties the pending map and settles each request. Callers hold
// mu; it is released before delivery.
func (c *correlator) drainLocked(err error) int {
	reqs := c.pending
	c.pending = make(map[int64]*pendingRequest)
	c.mu.Unlock()
	for _, req := range reqs {
		if req.timer != nil {
			req.timer.Stop()
		}
		req.done <- result{err: err}
	}
	return len(reqs)
}

func (c *correlator) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
