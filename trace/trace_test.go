package trace

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var traceParentPattern = regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-0[01]$`)

func TestEnsureTraceIDUsesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "existing-trace-id")
	assert.Equal(t, "existing-trace-id", EnsureTraceID(ctx))
}

func TestEnsureTraceIDGeneratesWhenMissing(t *testing.T) {
	got := EnsureTraceID(context.Background())
	assert.Regexp(t, `^[a-f0-9-]{36}$`, got)
	assert.NotEqual(t, got, EnsureTraceID(context.Background()))
}

func TestIDFromContextEmpty(t *testing.T) {
	_, ok := IDFromContext(WithTraceID(context.Background(), ""))
	assert.False(t, ok)
}

func TestParentFromContextExplicit(t *testing.T) {
	in := "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	out, ok := ParentFromContext(WithTraceParent(context.Background(), in))
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestParentFromContextSpan(t *testing.T) {
	tid, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: oteltrace.FlagsSampled})
	ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

	out, ok := ParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", out)
}

func TestParentFromContextMissing(t *testing.T) {
	_, ok := ParentFromContext(context.Background())
	assert.False(t, ok)
}

func TestGenerateTraceParentFormat(t *testing.T) {
	for range 10 {
		assert.Regexp(t, traceParentPattern, GenerateTraceParent())
	}
}
