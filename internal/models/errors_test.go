package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil is ok", err: nil, want: ExitOK},
		{name: "invalid", err: Invalidf("bad directive"), want: ExitInvalid},
		{name: "failed", err: Failedf(nil, "unusable output"), want: ExitFailed},
		{name: "wrapped invalid", err: fmt.Errorf("stage: %w", Invalidf("bad k")), want: ExitInvalid},
		{name: "wrapped failed", err: fmt.Errorf("stage: %w", Failedf(nil, "io")), want: ExitFailed},
		{name: "unknown error is an exception", err: errors.New("boom"), want: ExitException},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFailedError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := Failedf(inner, "cannot write artifact")
	if !errors.Is(err, inner) {
		t.Error("Failedf should wrap the underlying error")
	}
	if err.Error() != "cannot write artifact: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWarningString(t *testing.T) {
	w := Warning{Type: WarnFlatShape, MeterID: "m1", Message: "zero variance"}
	want := "flat_shape [m1]: zero variance"
	if w.String() != want {
		t.Errorf("String() = %q, want %q", w.String(), want)
	}
}
