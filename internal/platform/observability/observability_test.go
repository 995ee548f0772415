package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/statusboard/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		ok      bool
		span    string
		sampled bool
	}{
		{name: "decimal span", header: "105445aa7843bc8bf206b12000100000/12345;o=1", ok: true, span: "0000000000003039", sampled: true},
		{name: "hex span", header: "105445aa7843bc8bf206b12000100000/00f067aa0ba902b7;o=0", ok: true, span: "00f067aa0ba902b7"},
		{name: "missing span", header: "105445aa7843bc8bf206b12000100000", ok: false},
		{name: "short trace", header: "abc/1;o=1", ok: false},
		{name: "zero span", header: "105445aa7843bc8bf206b12000100000/0;o=1", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, ok := parseCloudTraceContext(tt.header)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if got := sc.SpanID().String(); got != tt.span {
				t.Fatalf("unexpected span id %s", got)
			}
			if sc.IsSampled() != tt.sampled {
				t.Fatalf("unexpected sampled flag")
			}
		})
	}
}

func TestTraceMiddlewareContinuesIncomingTrace(t *testing.T) {
	var info requestctx.TraceInfo
	handler := TraceMiddleware("demo-project")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		info, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/12345;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if info.TraceID != "105445aa7843bc8bf206b12000100000" || info.ProjectID != "demo-project" {
		t.Fatalf("unexpected trace info %+v", info)
	}
	if _, err := trace.TraceIDFromHex(info.TraceID); err != nil {
		t.Fatalf("trace id must stay hex: %v", err)
	}
}

func TestRequestLoggerLogsCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(RequestLoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if entries[0].Level != zapcore.WarnLevel || fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("unexpected completion entry %+v", entries[0])
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/status", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error, got %q", ct)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("panic must be logged through the fallback logger")
	}
}

func TestFormatCloudTraceHeaderRoundTrips(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/12345;o=1")
	if !ok {
		t.Fatal("expected header to parse")
	}
	if got := formatCloudTraceHeader(sc); got != "105445aa7843bc8bf206b12000100000/12345;o=1" {
		t.Fatalf("unexpected header %q", got)
	}
}
