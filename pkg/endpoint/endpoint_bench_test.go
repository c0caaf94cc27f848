package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mcpwire/endpoint-go/pkg/observability"
	"github.com/mcpwire/endpoint-go/pkg/protocol"
)

func BenchmarkPendingRegisterResolve(b *testing.B) {
	p := newPendingCalls(observability.NewNoopMetrics())
	resp, err := protocol.NewResponse("x", nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("req_%d", i)
		call, err := p.register(id, "bench")
		if err != nil {
			b.Fatal(err)
		}
		if _, err := p.resolve(id, resp); err != nil {
			b.Fatal(err)
		}
		<-call.done
	}
}

func BenchmarkSendRequestRoundTrip(b *testing.B) {
	// The transport loops every request straight back as a success response.
	tr := &loopbackTransport{}
	e := New(tr)
	tr.endpoint = e

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.SendRequest(ctx, "bench", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSendRequestRoundTripParallel(b *testing.B) {
	tr := &loopbackTransport{}
	e := New(tr)
	tr.endpoint = e

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			if _, err := e.SendRequest(ctx, "bench", nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// loopbackTransport answers every request immediately with an empty success
// response and swallows everything else.
type loopbackTransport struct {
	endpoint *Endpoint
}

func (t *loopbackTransport) Send(data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return err
	}
	req, ok := msg.(*protocol.Request)
	if !ok {
		return nil
	}

	resp, err := protocol.NewResponse(req.ID, nil)
	if err != nil {
		return err
	}
	resp.Result = protocol.EmptyResult

	out, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	go t.endpoint.HandleMessage(context.Background(), out)
	return nil
}

func (t *loopbackTransport) SetReceiveHandler(func(data []byte)) {}
