package endpoint

import (
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/mcpwire/endpoint-go/pkg/errors"
	"github.com/mcpwire/endpoint-go/pkg/observability"
	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

// ProgressHandler observes progress notifications for one outstanding request.
// It is invoked on the endpoint's inbound dispatch path, strictly before the
// request's terminal resolution is delivered.
type ProgressHandler func(params protocol.ProgressParams)

// outcome is the terminal state of a pending call: exactly one of resp or err
// is set. A nil err with a response carrying Error still counts as a normal
// resolution; cancellation arrives as err.
type outcome struct {
	resp *protocol.Response
	err  error
}

// pendingCall tracks one outstanding outbound request from registration until
// its single resolution.
type pendingCall struct {
	id       string
	method   string
	issuedAt time.Time
	token    protocol.ProgressToken
	progress ProgressHandler
	done     chan outcome
}

// pendingCalls is the pending-call table: the single point of mutual
// exclusion for correlation state. Entries are owned exclusively by the
// endpoint and never escape it.
type pendingCalls struct {
	mu      sync.Mutex
	calls   map[string]*pendingCall
	tokens  map[string]*pendingCall
	metrics observability.MetricsProvider
}

func newPendingCalls(metrics observability.MetricsProvider) *pendingCalls {
	return &pendingCalls{
		calls:   make(map[string]*pendingCall),
		tokens:  make(map[string]*pendingCall),
		metrics: metrics,
	}
}

// tokenKey canonicalizes a progress token for table lookup. A wire round-trip
// changes a token's dynamic type (an integer sent as 7 decodes back as
// float64(7)), so tokens are keyed by their printed form, not by type.
func tokenKey(token protocol.ProgressToken) string {
	return fmt.Sprintf("%v", token)
}

// register allocates a new entry for id. A duplicate id is a caller bug and
// fails fast instead of silently overwriting the in-flight entry.
func (p *pendingCalls) register(id, method string) (*pendingCall, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.calls[id]; exists {
		return nil, mcperrors.DuplicateRequestID(id)
	}

	call := &pendingCall{
		id:       id,
		method:   method,
		issuedAt: time.Now(),
		done:     make(chan outcome, 1),
	}
	p.calls[id] = call
	p.metrics.PendingCallsInc()
	return call, nil
}

// bindProgress associates a progress token with a registered call. Token
// collisions are treated like duplicate request ids.
func (p *pendingCalls) bindProgress(id string, token protocol.ProgressToken, handler ProgressHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	call, exists := p.calls[id]
	if !exists {
		return mcperrors.UnknownResponseID(id)
	}
	key := tokenKey(token)
	if _, taken := p.tokens[key]; taken {
		return mcperrors.DuplicateProgressToken(token)
	}

	call.token = token
	call.progress = handler
	p.tokens[key] = call
	return nil
}

// resolve completes the entry for id with a response and removes it. An
// absent id means a stray or late response; the returned error reports it and
// the caller logs and moves on.
func (p *pendingCalls) resolve(id string, resp *protocol.Response) (*pendingCall, error) {
	p.mu.Lock()
	call, exists := p.calls[id]
	if !exists {
		p.mu.Unlock()
		return nil, mcperrors.UnknownResponseID(id)
	}
	p.remove(call)
	p.mu.Unlock()

	call.done <- outcome{resp: resp}
	return call, nil
}

// cancel completes the entry for id with a cancellation outcome. If the entry
// is already resolved (and therefore gone) this is a no-op.
func (p *pendingCalls) cancel(id string) {
	p.mu.Lock()
	call, exists := p.calls[id]
	if exists {
		p.remove(call)
	}
	p.mu.Unlock()

	if exists {
		call.done <- outcome{err: mcperrors.RequestCancelled(id, call.method)}
	}
}

// deregister drops an entry without completing it. Used when the request was
// never successfully transmitted and nobody will ever wait on it.
func (p *pendingCalls) deregister(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if call, exists := p.calls[id]; exists {
		p.remove(call)
	}
}

// remove deletes a call from both indexes. Caller holds p.mu.
func (p *pendingCalls) remove(call *pendingCall) {
	delete(p.calls, call.id)
	if call.token != nil {
		delete(p.tokens, tokenKey(call.token))
	}
	p.metrics.PendingCallsDec()
}

// observeProgress routes a progress value to the handler bound to token. A
// missing token means the call already resolved or the token is unknown;
// progress after completion is expected and harmless, so the value is simply
// dropped and false returned.
func (p *pendingCalls) observeProgress(token protocol.ProgressToken, params protocol.ProgressParams) bool {
	p.mu.Lock()
	call, exists := p.tokens[tokenKey(token)]
	var handler ProgressHandler
	if exists {
		handler = call.progress
	}
	p.mu.Unlock()

	if handler == nil {
		return false
	}
	// Invoked outside the lock so a handler may call back into the endpoint.
	handler(params)
	return true
}

// size reports the number of outstanding calls.
func (p *pendingCalls) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
