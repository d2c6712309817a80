package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestOpErrorWrapUnwrap(t *testing.T) {
	root := errors.New("root")
	err := &OpError{
		Op:   "drawingdb.add_layer",
		Kind: KindLayerCreation,
		Path: "PUMP01.dxf",
		Err:  root,
	}

	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}

	var got *OpError
	if !errors.As(err, &got) {
		t.Fatalf("expected errors.As to match OpError")
	}
	if got.Kind != KindLayerCreation {
		t.Fatalf("expected kind %s", KindLayerCreation)
	}
	if !strings.Contains(err.Error(), "path=PUMP01.dxf") {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}

func TestOpErrorMatchesKindSentinel(t *testing.T) {
	err := &OpError{Op: "x", Kind: KindLayerCreation, Err: errors.New("duplicate")}

	if !errors.Is(err, ErrLayerCreation) {
		t.Fatalf("expected errors.Is(err, ErrLayerCreation)")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("did not expect ErrNotFound to match")
	}
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := &OpError{Op: "x", Kind: KindInvalidConfig}
	err := errors.Join(errors.New("outer"), inner)

	if !IsKind(err, KindInvalidConfig) {
		t.Fatalf("expected IsKind to match wrapped error")
	}
	if KindOf(errors.New("plain")) != KindExecution {
		t.Fatalf("expected plain errors to classify as execution")
	}
}

func TestOpErrorNilSafe(t *testing.T) {
	var e *OpError
	if e.Error() != "<nil>" {
		t.Fatalf("expected <nil>")
	}
	if e.Unwrap() != nil {
		t.Fatalf("expected nil unwrap")
	}
}
