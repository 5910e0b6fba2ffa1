package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestRemoteErrorMatchesKind(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := fmt.Errorf("fetch attendance: %w", &RemoteError{Kind: NetworkUnreachable, Endpoint: "attendance.php", Err: cause})

	if !Is(err, NetworkUnreachable) {
		t.Fatalf("expected NetworkUnreachable, got %v", err)
	}
	if Is(err, ServerError) {
		t.Fatalf("network failure must not match ServerError")
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("underlying cause should stay reachable")
	}
	if got := KindOf(err); got != NetworkUnreachable {
		t.Fatalf("KindOf = %v", got)
	}
}

func TestRemoteErrorMessage(t *testing.T) {
	err := &RemoteError{Kind: ServerError, Status: 500, Message: "System Error: 500"}
	if err.Error() != "System Error: 500" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	bare := &RemoteError{Kind: Cancelled}
	if bare.Error() != Cancelled.Message {
		t.Fatalf("fallback message = %q", bare.Error())
	}
	if !IsCancelled(bare) {
		t.Fatalf("expected cancelled")
	}
}

func TestValidationAndConfirmation(t *testing.T) {
	v := Validation("new_password", "Password must be at least %d characters", 6)
	if !Is(v, ValidationFailed) {
		t.Fatalf("validation error should match ValidationFailed")
	}
	if KindOf(v).Code != ValidationFailed.Code {
		t.Fatalf("KindOf(validation) = %v", KindOf(v))
	}

	c := &ConfirmationError{Action: "check-out", Remaining: "0h 30m"}
	if !Is(c, ConfirmationRequired) {
		t.Fatalf("confirmation error should match ConfirmationRequired")
	}
	if c.Definition().Code != ConfirmationRequired.Code {
		t.Fatalf("unexpected code %s", c.Definition().Code)
	}
}

func TestGetUnknownCode(t *testing.T) {
	if got := Get("NOPE"); got.Message != "Unexpected error" {
		t.Fatalf("unexpected definition %+v", got)
	}
	if got := Get(Unauthorized.Code); got != Unauthorized {
		t.Fatalf("lookup mismatch %+v", got)
	}
}
