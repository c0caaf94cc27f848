package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/mcpwire/endpoint-go/pkg/errors"
	"github.com/mcpwire/endpoint-go/pkg/logging"
	"github.com/mcpwire/endpoint-go/pkg/observability"
	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

// Transport is the narrow surface the endpoint requires of a wire transport.
// Framing and connection lifecycle stay on the transport's side of the line.
type Transport interface {
	// Send transmits one encoded message.
	Send(data []byte) error
	// SetReceiveHandler registers the callback invoked with each complete
	// inbound message.
	SetReceiveHandler(handler func(data []byte))
}

// RequestHandler handles an inbound request and returns its result. A nil
// result resolves the request with the shared empty result.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler handles an inbound notification.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Endpoint is the local side of the protocol connection. It mediates all
// inbound and outbound messages: correlating responses to pending calls,
// routing progress to its observers, and dispatching peer requests and
// notifications to registered handlers.
type Endpoint struct {
	transport Transport
	pending   *pendingCalls
	logger    logging.Logger
	metrics   observability.MetricsProvider
	tracing   *observability.TracingProvider

	handlerMu            sync.RWMutex
	requestHandlers      map[string]RequestHandler
	notificationHandlers map[string]NotificationHandler

	// inflight tracks inbound requests currently being dispatched so a peer
	// cancellation can reach their contexts.
	inflightMu sync.Mutex
	inflight   map[string]context.CancelFunc

	// activeTokens tracks progress tokens of inbound requests whose reporters
	// are still allowed to transmit.
	tokenMu      sync.Mutex
	activeTokens map[protocol.ProgressToken]struct{}

	nextID   atomic.Int64
	idPrefix string
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Endpoint) { e.logger = logger }
}

// WithMetrics sets the metrics provider. Defaults to no-op metrics.
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(e *Endpoint) { e.metrics = metrics }
}

// WithTracing sets the tracing provider. Tracing is disabled when unset.
func WithTracing(tracing *observability.TracingProvider) Option {
	return func(e *Endpoint) { e.tracing = tracing }
}

// WithRequestIDPrefix sets the prefix for generated correlation ids.
func WithRequestIDPrefix(prefix string) Option {
	return func(e *Endpoint) { e.idPrefix = prefix }
}

// New creates an Endpoint bound to a transport and registers itself as the
// transport's receive handler.
func New(transport Transport, opts ...Option) *Endpoint {
	e := &Endpoint{
		transport:            transport,
		logger:               logging.NewNoopLogger(),
		metrics:              observability.NewNoopMetrics(),
		requestHandlers:      make(map[string]RequestHandler),
		notificationHandlers: make(map[string]NotificationHandler),
		inflight:             make(map[string]context.CancelFunc),
		activeTokens:         make(map[protocol.ProgressToken]struct{}),
		idPrefix:             "req",
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.WithFields(logging.String("component", "endpoint"))
	e.pending = newPendingCalls(e.metrics)

	transport.SetReceiveHandler(func(data []byte) {
		e.HandleMessage(context.Background(), data)
	})

	return e
}

// RegisterRequestHandler registers a handler for inbound requests naming
// method.
func (e *Endpoint) RegisterRequestHandler(method string, handler RequestHandler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()
	e.requestHandlers[method] = handler
}

// RegisterNotificationHandler registers a handler for inbound notifications
// naming method.
func (e *Endpoint) RegisterNotificationHandler(method string, handler NotificationHandler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()
	e.notificationHandlers[method] = handler
}

// PendingCalls reports the number of outbound requests currently awaiting a
// response.
func (e *Endpoint) PendingCalls() int {
	return e.pending.size()
}

// nextRequestID allocates a fresh correlation id, unique for the lifetime of
// the connection.
func (e *Endpoint) nextRequestID() string {
	return fmt.Sprintf("%s_%d", e.idPrefix, e.nextID.Add(1))
}

// CallOption configures a single SendRequest invocation.
type CallOption func(*callOptions)

type callOptions struct {
	progressHandler ProgressHandler
	progressToken   protocol.ProgressToken
}

// WithProgress attaches a progress observer to the request. A fresh token is
// generated and carried on the wire; progress notifications bearing it are
// delivered to handler until the request resolves.
func WithProgress(handler ProgressHandler) CallOption {
	return func(o *callOptions) { o.progressHandler = handler }
}

// WithProgressToken overrides the generated progress token. The token must be
// unique among the sender's outstanding progress-bearing requests.
func WithProgressToken(token protocol.ProgressToken) CallOption {
	return func(o *callOptions) { o.progressToken = token }
}

// SendRequest transmits a request and suspends the caller until the
// correlated response, an error, or cancellation. Cancelling ctx unblocks
// immediately with a cancellation outcome and best-effort informs the peer;
// it never waits for an acknowledgment.
func (e *Endpoint) SendRequest(ctx context.Context, method string, params interface{}, opts ...CallOption) (json.RawMessage, error) {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}

	id := e.nextRequestID()

	if e.tracing != nil {
		var span trace.Span
		ctx, span = e.tracing.StartRequestSpan(ctx, method, id)
		defer span.End()
	}

	call, err := e.pending.register(id, method)
	if err != nil {
		return nil, err
	}

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		e.pending.deregister(id)
		return nil, err
	}

	if options.progressHandler != nil {
		token := options.progressToken
		if token == nil {
			token = uuid.NewString()
		}
		if err := e.pending.bindProgress(id, token, options.progressHandler); err != nil {
			e.pending.deregister(id)
			return nil, err
		}
		req.ProgressToken = token
	}

	data, err := json.Marshal(req)
	if err != nil {
		e.pending.deregister(id)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	e.logger.Debug("sending request",
		logging.String("request_id", id),
		logging.String("method", method))

	if err := e.transport.Send(data); err != nil {
		e.pending.deregister(id)
		return nil, mcperrors.MessageSendError("endpoint", err)
	}

	select {
	case out := <-call.done:
		if out.err != nil {
			e.metrics.RecordRequest(method, observability.OutcomeCancelled, time.Since(call.issuedAt))
			return nil, out.err
		}
		if out.resp.Error != nil {
			e.metrics.RecordRequest(method, observability.OutcomeError, time.Since(call.issuedAt))
			return nil, out.resp.Error
		}
		e.metrics.RecordRequest(method, observability.OutcomeSuccess, time.Since(call.issuedAt))
		return out.resp.Result, nil

	case <-ctx.Done():
		e.pending.cancel(id)
		// Drain the completion the table just delivered so the cancellation
		// below reflects this caller's view, then inform the peer without
		// blocking on it.
		select {
		case <-call.done:
		default:
		}
		go e.sendCancelled(id, ctx.Err())
		e.metrics.RecordRequest(method, observability.OutcomeCancelled, time.Since(call.issuedAt))
		return nil, mcperrors.RequestCancelled(id, method)
	}
}

// sendCancelled best-effort notifies the peer that a request was abandoned.
func (e *Endpoint) sendCancelled(id string, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := e.SendNotification(context.Background(), protocol.MethodCancelled, protocol.CancelledParams{
		ID:     id,
		Reason: reason,
	}); err != nil {
		e.logger.Debug("failed to send cancellation notification",
			logging.String("request_id", id),
			logging.ErrorField(err))
	}
}

// SendNotification transmits a fire-and-forget notification. There is no
// correlation id, no suspension, and no result.
func (e *Endpoint) SendNotification(ctx context.Context, method string, params interface{}) error {
	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}

	data, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := e.transport.Send(data); err != nil {
		return mcperrors.MessageSendError("endpoint", err)
	}

	e.metrics.RecordNotificationSent(method)
	return nil
}

// NotifyProgress transmits a progress notification carrying params. Used by
// progress reporters; fire-and-forget but still subject to transport
// backpressure.
func (e *Endpoint) NotifyProgress(ctx context.Context, params protocol.ProgressParams) error {
	if err := e.SendNotification(ctx, protocol.MethodProgress, params); err != nil {
		return err
	}
	e.metrics.RecordProgress(observability.DirectionOutbound)
	return nil
}

// HandleMessage is the transport's inbound entry point. It classifies the
// message and routes it: responses resolve pending calls, progress
// notifications reach their observers, and everything else goes to the
// registered handlers. No inbound message, however malformed or misbehaving,
// stops the dispatch loop.
func (e *Endpoint) HandleMessage(ctx context.Context, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		e.metrics.RecordProtocolError("malformed")
		e.logger.WithError(mcperrors.MalformedMessage(err)).Warn("dropping malformed message")
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		e.handleResponse(m)
	case *protocol.Notification:
		e.handleNotification(ctx, m)
	case *protocol.Request:
		// Dispatched on its own goroutine so a handler that itself issues
		// requests through this endpoint cannot stall the message loop.
		go e.dispatchRequest(ctx, m)
	}
}

// handleResponse resolves the pending call correlated with the response.
// Stray and late responses are expected under reordering and dropped quietly.
func (e *Endpoint) handleResponse(resp *protocol.Response) {
	id := fmt.Sprintf("%v", resp.ID)

	if _, err := e.pending.resolve(id, resp); err != nil {
		e.metrics.RecordStrayResponse()
		e.logger.Debug("dropping response for unknown request id",
			logging.String("request_id", id))
	}
}

// handleNotification routes progress and cancellation notifications to the
// correlation machinery and hands everything else to registered handlers.
func (e *Endpoint) handleNotification(ctx context.Context, notif *protocol.Notification) {
	switch notif.Method {
	case protocol.MethodProgress:
		var params protocol.ProgressParams
		if err := json.Unmarshal(notif.Params, &params); err != nil {
			e.metrics.RecordProtocolError("malformed_progress")
			e.logger.WithError(mcperrors.MalformedMessage(err)).Warn("dropping malformed progress notification")
			return
		}
		e.metrics.RecordProgress(observability.DirectionInbound)
		if !e.pending.observeProgress(params.ProgressToken, params) {
			e.metrics.RecordDroppedProgress()
			e.logger.Debug("dropping progress for unknown token",
				logging.Any("progress_token", params.ProgressToken))
		}

	case protocol.MethodCancelled:
		var params protocol.CancelledParams
		if err := json.Unmarshal(notif.Params, &params); err != nil {
			e.metrics.RecordProtocolError("malformed_cancelled")
			e.logger.WithError(mcperrors.MalformedMessage(err)).Warn("dropping malformed cancellation notification")
			return
		}
		e.cancelInflight(fmt.Sprintf("%v", params.ID))

	default:
		e.dispatchNotification(ctx, notif)
	}
}

// dispatchNotification invokes the registered notification handler. A failing
// or panicking handler is reported and dispatch continues; a missing handler
// is a peer talking past us and only worth a debug line.
func (e *Endpoint) dispatchNotification(ctx context.Context, notif *protocol.Notification) {
	e.handlerMu.RLock()
	handler, ok := e.notificationHandlers[notif.Method]
	e.handlerMu.RUnlock()

	if !ok {
		e.logger.Debug("no handler for notification",
			logging.String("method", notif.Method))
		return
	}

	e.metrics.RecordInboundNotification(notif.Method)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = mcperrors.HandlerPanic(notif.Method, r)
			}
		}()
		return handler(ctx, notif.Params)
	}()
	if err != nil {
		e.logger.WithError(err).Warn("notification handler failed",
			logging.String("method", notif.Method))
	}
}

// dispatchRequest invokes the registered request handler and transmits its
// result as a response. Handler errors become error responses; panics are
// recovered; the loop is never the casualty.
func (e *Endpoint) dispatchRequest(ctx context.Context, req *protocol.Request) {
	start := time.Now()
	id := fmt.Sprintf("%v", req.ID)

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.trackInflight(id, cancel)
	defer e.untrackInflight(id)

	rctx = logging.ContextWithRequestID(rctx, id)
	if req.ProgressToken != nil {
		rctx = ContextWithProgressToken(rctx, req.ProgressToken)
		e.activateToken(req.ProgressToken)
		defer e.retireToken(req.ProgressToken)
	}

	if e.tracing != nil {
		var span trace.Span
		rctx, span = e.tracing.StartDispatchSpan(rctx, req.Method)
		defer span.End()
	}

	e.handlerMu.RLock()
	handler, ok := e.requestHandlers[req.Method]
	e.handlerMu.RUnlock()

	if !ok {
		e.metrics.RecordInboundRequest(req.Method, observability.OutcomeError, time.Since(start))
		e.respondError(req.ID, protocol.MethodNotFound, mcperrors.MethodNotFound(req.Method))
		return
	}

	result, err := func() (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = mcperrors.HandlerPanic(req.Method, r)
			}
		}()
		return handler(rctx, req.Params)
	}()

	outcome := observability.OutcomeSuccess
	switch {
	case err != nil && rctx.Err() != nil:
		outcome = observability.OutcomeCancelled
		e.respondError(req.ID, protocol.OperationCancelled, err)
	case err != nil:
		outcome = observability.OutcomeError
		code := protocol.InternalError
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			code = protocol.ErrorCode(mcpErr.Code())
		}
		e.respondError(req.ID, code, err)
	default:
		e.respond(req.ID, result)
	}
	if err != nil && e.tracing != nil {
		e.tracing.RecordError(rctx, err)
	}

	e.metrics.RecordInboundRequest(req.Method, outcome, time.Since(start))
}

// respond marshals and transmits a success response. A nil result resolves
// with the shared empty result.
func (e *Endpoint) respond(id interface{}, result interface{}) {
	var resp *protocol.Response
	var err error

	if result == nil {
		resp, err = protocol.NewResponse(id, nil)
		if err == nil {
			resp.Result = protocol.EmptyResult
		}
	} else {
		resp, err = protocol.NewResponse(id, result)
	}
	if err != nil {
		e.respondError(id, protocol.InternalError, err)
		return
	}

	e.sendResponse(resp)
}

// respondError transmits an error response carrying code and the error's
// message, plus structured data when the error provides it.
func (e *Endpoint) respondError(id interface{}, code protocol.ErrorCode, cause error) {
	var data interface{}
	if mcpErr, ok := mcperrors.AsMCPError(cause); ok {
		data = mcpErr.Data()
	}

	resp, err := protocol.NewErrorResponse(id, code, cause.Error(), data)
	if err != nil {
		e.logger.WithError(err).Error("failed to build error response",
			logging.Any("request_id", id))
		return
	}

	e.sendResponse(resp)
}

func (e *Endpoint) sendResponse(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		e.logger.WithError(err).Error("failed to marshal response",
			logging.Any("request_id", resp.ID))
		return
	}

	if err := e.transport.Send(data); err != nil {
		e.logger.WithError(err).Warn("failed to send response",
			logging.Any("request_id", resp.ID))
	}
}

// trackInflight records the cancel func of an inbound request so a peer
// cancellation notification can reach it.
func (e *Endpoint) trackInflight(id string, cancel context.CancelFunc) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	e.inflight[id] = cancel
}

func (e *Endpoint) untrackInflight(id string) {
	e.inflightMu.Lock()
	defer e.inflightMu.Unlock()
	delete(e.inflight, id)
}

// cancelInflight cancels the context of an in-flight inbound request.
// Cancellation is cooperative: the handler decides when to stop.
func (e *Endpoint) cancelInflight(id string) {
	e.inflightMu.Lock()
	cancel, ok := e.inflight[id]
	e.inflightMu.Unlock()

	if ok {
		cancel()
		return
	}
	e.logger.Debug("cancellation for unknown inbound request",
		logging.String("request_id", id))
}
