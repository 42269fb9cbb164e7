package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newMiddlewareFixture wires metrics and an in-memory span exporter for
// middleware tests, swapping the global tracer provider for the test's
// lifetime.
func newMiddlewareFixture(t *testing.T) (func(http.Handler) http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	return Middleware(m), reader, exp
}

func serve(mw func(http.Handler) http.Handler, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mw(h).ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_SetsCorrelationID(t *testing.T) {
	mw, _, _ := newMiddlewareFixture(t)

	var cid string
	rec := serve(mw, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
	}, httptest.NewRequest("GET", "/v1/session/start", nil))

	if cid == "" {
		t.Error("middleware did not set correlation ID in context")
	}
	if len(cid) != 32 {
		t.Errorf("generated correlation ID length = %d, want 32", len(cid))
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("response X-Correlation-ID = %q, want %q", got, cid)
	}
}

func TestMiddleware_CreatesServerSpan(t *testing.T) {
	mw, _, exp := newMiddlewareFixture(t)

	serve(mw, func(w http.ResponseWriter, r *http.Request) {}, httptest.NewRequest("GET", "/v1/live", nil))

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("middleware did not create a span")
	}
	if spans[0].Name != "HTTP GET /v1/live" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "HTTP GET /v1/live")
	}
	if spans[0].SpanKind != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", spans[0].SpanKind)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	mw, reader, _ := newMiddlewareFixture(t)

	serve(mw, func(w http.ResponseWriter, r *http.Request) {}, httptest.NewRequest("POST", "/v1/session/stop", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	met := findMetric(rm, "speakup.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}
	want := map[string]string{"method": "POST", "path": "/v1/session/stop"}
	for _, kv := range dp.Attributes.ToSlice() {
		if exp, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == exp {
			delete(want, string(kv.Key))
		}
	}
	for k := range want {
		t.Errorf("missing %s attribute", k)
	}
}

func TestMiddleware_CapturesStatusCode(t *testing.T) {
	mw, _, exp := newMiddlewareFixture(t)

	rec := serve(mw, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, httptest.NewRequest("POST", "/v1/session/stop", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("response status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	found := false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == 404 {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code attribute")
	}
}

func TestMiddleware_ImplicitOKStatus(t *testing.T) {
	mw, _, exp := newMiddlewareFixture(t)

	// Handler writes a body without an explicit WriteHeader call.
	serve(mw, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}, httptest.NewRequest("GET", "/v1/progress", nil))

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() != 200 {
			t.Errorf("status attribute = %d, want 200", a.Value.AsInt64())
		}
	}
}

func TestMiddleware_PropagatesW3CTraceContext(t *testing.T) {
	mw, _, _ := newMiddlewareFixture(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var cid string
	req := httptest.NewRequest("GET", "/v1/live", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	rec := serve(mw, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
	}, req)

	// The incoming trace ID should flow through to both the handler's context
	// and the response header.
	if cid != traceID {
		t.Errorf("correlation ID = %q, want %q", cid, traceID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("response X-Correlation-ID = %q, want %q", got, traceID)
	}
}
