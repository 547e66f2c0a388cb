package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestWorkloadString(t *testing.T) {
	if got := Independent().String(); got != "independent" {
		t.Errorf("Independent().String() = %q", got)
	}
	if got := Sequential("db-42").String(); got != "sequential(db-42)" {
		t.Errorf("Sequential().String() = %q", got)
	}
}

func TestSequentialWorkloadsCompare(t *testing.T) {
	a := Sequential("alpha")
	b := Sequential("alpha")
	c := Sequential("beta")

	if a != b {
		t.Error("equal signatures must compare equal")
	}
	if a == c {
		t.Error("distinct signatures must not compare equal")
	}
	if a == Independent() {
		t.Error("sequential must not equal independent")
	}
}

func TestIsRecoverable(t *testing.T) {
	wrapped := fmt.Errorf("decode item 3: %w", ErrBadItem)
	if !IsRecoverable(wrapped) {
		t.Error("errors wrapping ErrBadItem must be recoverable")
	}
	if IsRecoverable(errors.New("connection reset")) {
		t.Error("arbitrary errors must not be recoverable")
	}
	if IsRecoverable(nil) {
		t.Error("nil must not be recoverable")
	}
}

func TestSourceIDRoundTrip(t *testing.T) {
	id := SourceID(42)
	parsed, err := ParseSourceID(id.String())
	if err != nil {
		t.Fatalf("ParseSourceID: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip: got %v, want %v", parsed, id)
	}

	if _, err := ParseSourceID("not-a-number"); err == nil {
		t.Error("expected error for malformed id")
	}
}
