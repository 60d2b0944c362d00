package stream_test

import (
	"bytes"
	"testing"

	"streamjudge/internal/judge/stream"
)

func TestEncodeWireFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	enc := stream.NewEncoder(&buf)

	err := enc.Encode(stream.Event{
		Name:    stream.EventExecute,
		Payload: map[string]interface{}{"verdict": "accepted"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "event: execute\ndata: {\"verdict\":\"accepted\"}\n\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestEncodeStringPayload(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	enc := stream.NewEncoder(&buf)

	if err := enc.Encode(stream.Event{Name: stream.EventCompile, Payload: "warning: unused"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "event: compile\ndata: \"warning: unused\"\n\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestEncodeErrorPayloadOmitsEmptyStack(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	enc := stream.NewEncoder(&buf)

	if err := enc.Encode(stream.Event{
		Name:    stream.EventError,
		Payload: stream.ErrorPayload{Message: "boom"},
	}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "event: error\ndata: {\"message\":\"boom\"}\n\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestEncodeSequentialEventsConcatenate(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	enc := stream.NewEncoder(&buf)

	for _, ev := range []stream.Event{
		{Name: stream.EventCompile, Payload: "ok"},
		{Name: stream.EventExecute, Payload: map[string]int{"test_case": 1}},
	} {
		if err := enc.Encode(ev); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	want := "event: compile\ndata: \"ok\"\n\nevent: execute\ndata: {\"test_case\":1}\n\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}
