package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestTracingHook_RejectsEmptyPayload(t *testing.T) {
	h := NewTracingHook(nil)
	_, _, _, err := h.BeforeHandle(context.Background(), "price_history", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_EMPTY_PAYLOAD" {
		t.Fatalf("expected ERR_EMPTY_PAYLOAD, got %v", err)
	}
}

func TestTracingHook_StampsTraceID(t *testing.T) {
	h := NewTracingHook(nil)
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := h.BeforeHandle(context.Background(), "price_history", km, []byte(`{}`))
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if got, _ := ctx.Value(CtxTraceID).(string); got != "abc" {
		t.Fatalf("trace id = %q", got)
	}
	if ctx.Value(CtxStartTime) == nil {
		t.Fatal("start time not set")
	}
}

func TestHookChain_PanicBecomesError(t *testing.T) {
	var afterOrder []string
	var errCalls int
	chain := NewHookChain(
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { afterOrder = append(afterOrder, "first") }},
		nil,
		HookFuncs{
			Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
				panic("boom")
			},
			Err: func(context.Context, string, kafka.Message, []byte, error) { errCalls++ },
		},
	)
	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("expected ERR_PANIC, got %v", err)
	}
	if errCalls != 1 {
		t.Fatalf("OnError calls = %d", errCalls)
	}

	chain2 := NewHookChain(
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { afterOrder = append(afterOrder, "a") }},
		HookFuncs{After: func(context.Context, string, kafka.Message, []byte, error) { afterOrder = append(afterOrder, "b") }},
	)
	afterOrder = nil
	chain2.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil)
	if len(afterOrder) != 2 || afterOrder[0] != "b" || afterOrder[1] != "a" {
		t.Fatalf("after order = %v", afterOrder)
	}
}

func TestBackoffWithJitter_Bounded(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoff(0, 0, attempt)
		if d <= 0 || d > 50*time.Millisecond {
			t.Fatalf("attempt %d backoff %v out of range", attempt, d)
		}
	}
}
