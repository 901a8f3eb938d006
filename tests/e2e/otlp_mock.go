package e2e

import (
	"context"
	"net"
	"sync"
	"testing"

	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/grpc"
)

// otlpCollector is an in-memory OTLP trace receiver. Exports from the
// real exporter land here so tests can assert on what the service
// actually ships.
type otlpCollector struct {
	collectortrace.UnimplementedTraceServiceServer

	t             *testing.T
	mu            sync.Mutex
	resourceSpans []*tracepb.ResourceSpans
	notify        chan struct{}
}

// startOTLPCollector starts a gRPC OTLP receiver on a loopback port and
// returns it together with its endpoint address.
func startOTLPCollector(t *testing.T) (*otlpCollector, string) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start OTLP listener: %v", err)
	}

	collector := &otlpCollector{
		notify: make(chan struct{}, 1),
		t:      t,
	}

	server := grpc.NewServer()
	collectortrace.RegisterTraceServiceServer(server, collector)

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(func() {
		server.Stop()
		_ = lis.Close()
	})

	return collector, lis.Addr().String()
}

func (c *otlpCollector) Export(_ context.Context, req *collectortrace.ExportTraceServiceRequest) (*collectortrace.ExportTraceServiceResponse, error) {
	c.mu.Lock()
	c.resourceSpans = append(c.resourceSpans, req.ResourceSpans...)
	c.mu.Unlock()

	if c.t != nil {
		c.t.Logf("received %d resource spans", len(req.ResourceSpans))
	}

	select {
	case c.notify <- struct{}{}:
	default:
	}

	return &collectortrace.ExportTraceServiceResponse{}, nil
}

// WaitForSpans blocks until at least minSpans spans have arrived or the
// context expires, and returns everything received so far.
func (c *otlpCollector) WaitForSpans(ctx context.Context, minSpans int) []*tracepb.Span {
	for {
		c.mu.Lock()
		spans := flattenResourceSpans(c.resourceSpans)
		c.mu.Unlock()
		if len(spans) >= minSpans {
			return spans
		}

		select {
		case <-ctx.Done():
			return spans
		case <-c.notify:
		}
	}
}

// ServiceNames returns the distinct service.name resource attribute
// values seen across all exports.
func (c *otlpCollector) ServiceNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for _, rs := range c.resourceSpans {
		if rs.Resource == nil {
			continue
		}
		for _, attr := range rs.Resource.Attributes {
			if attr.Key == "service.name" {
				if name := attr.Value.GetStringValue(); !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}

func flattenResourceSpans(resSpans []*tracepb.ResourceSpans) []*tracepb.Span {
	var spans []*tracepb.Span
	for _, rs := range resSpans {
		for _, scope := range rs.ScopeSpans {
			spans = append(spans, scope.Spans...)
		}
	}
	return spans
}

// findSpan returns the first span with the given name.
func findSpan(spans []*tracepb.Span, name string) *tracepb.Span {
	for _, span := range spans {
		if span.Name == name {
			return span
		}
	}
	return nil
}

// eventsNamed returns all events with the given name across a span.
func eventsNamed(span *tracepb.Span, name string) []*tracepb.Span_Event {
	var events []*tracepb.Span_Event
	for _, event := range span.Events {
		if event.Name == name {
			events = append(events, event)
		}
	}
	return events
}

// eventAttr returns the string form of an event attribute, or "" when
// the key is absent.
func eventAttr(event *tracepb.Span_Event, key string) string {
	for _, attr := range event.Attributes {
		if attr.Key == key {
			return attrString(attr.Value)
		}
	}
	return ""
}

// eventAttrInt returns an integer event attribute, or 0 when absent.
func eventAttrInt(event *tracepb.Span_Event, key string) int64 {
	for _, attr := range event.Attributes {
		if attr.Key == key {
			return attr.Value.GetIntValue()
		}
	}
	return 0
}

func attrString(value *commonpb.AnyValue) string {
	if value == nil {
		return ""
	}
	if s := value.GetStringValue(); s != "" {
		return s
	}
	return value.String()
}
