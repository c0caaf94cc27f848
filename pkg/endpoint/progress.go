package endpoint

import (
	"context"

	"github.com/mcpwire/endpoint-go/pkg/logging"
	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

// ContextWithProgressToken returns a context carrying the progress token of an
// inbound request.
func ContextWithProgressToken(ctx context.Context, token protocol.ProgressToken) context.Context {
	return logging.ContextWithProgressToken(ctx, token)
}

// ProgressTokenFromContext extracts the progress token from a dispatch
// context. Nil when the request carried no token.
func ProgressTokenFromContext(ctx context.Context) protocol.ProgressToken {
	return logging.ProgressTokenFromContext(ctx)
}

// ProgressReporter streams progress for one inbound request back to its
// sender. Report is fire-and-forget: failures are swallowed, and once the
// owning request resolves the reporter goes inert and later calls are
// silently dropped.
type ProgressReporter struct {
	endpoint *Endpoint
	token    protocol.ProgressToken
}

// Reporter returns a progress reporter for the inbound request bound to ctx.
// If the request carried no progress token the reporter is inert from the
// start, so handlers can report unconditionally.
func (e *Endpoint) Reporter(ctx context.Context) *ProgressReporter {
	return &ProgressReporter{
		endpoint: e,
		token:    ProgressTokenFromContext(ctx),
	}
}

// Report sends one progress value to the request's sender. Total of zero
// means the total is unknown. It never returns an error and never blocks the
// handler on anything beyond the transport write.
func (r *ProgressReporter) Report(progress, total float64, message string) {
	if r == nil || r.token == nil {
		return
	}
	if !r.endpoint.tokenActive(r.token) {
		r.endpoint.metrics.RecordDroppedProgress()
		r.endpoint.logger.Debug("dropping progress report after request resolution",
			logging.Any("progress_token", r.token))
		return
	}

	err := r.endpoint.NotifyProgress(context.Background(), protocol.ProgressParams{
		ProgressToken: r.token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
	if err != nil {
		r.endpoint.logger.Debug("failed to send progress notification",
			logging.Any("progress_token", r.token),
			logging.ErrorField(err))
	}
}

// activateToken marks an inbound request's token live for the duration of its
// dispatch.
func (e *Endpoint) activateToken(token protocol.ProgressToken) {
	e.tokenMu.Lock()
	defer e.tokenMu.Unlock()
	e.activeTokens[token] = struct{}{}
}

// retireToken makes reporters holding token inert. Called after the request's
// response has been transmitted, so progress always precedes resolution on
// the wire.
func (e *Endpoint) retireToken(token protocol.ProgressToken) {
	e.tokenMu.Lock()
	defer e.tokenMu.Unlock()
	delete(e.activeTokens, token)
}

func (e *Endpoint) tokenActive(token protocol.ProgressToken) bool {
	e.tokenMu.Lock()
	defer e.tokenMu.Unlock()
	_, ok := e.activeTokens[token]
	return ok
}
