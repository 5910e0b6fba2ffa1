package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"

	"Attendify/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.Validation("reason", "Reason is required"), http.StatusBadRequest},
		{&errors.RemoteError{Kind: errors.Unauthorized}, http.StatusUnauthorized},
		{errors.NotAuthenticated, http.StatusUnauthorized},
		{&errors.ConfirmationError{Action: "Early check-out", Remaining: "0h 30m"}, http.StatusConflict},
		{&errors.RemoteError{Kind: errors.ServerError, Message: "System Error: 500"}, http.StatusBadGateway},
		{fmt.Errorf("sync: %w", &errors.RemoteError{Kind: errors.NetworkUnreachable}), http.StatusServiceUnavailable},
		{fmt.Errorf("department Ops: %w", errors.NotFound), http.StatusNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusOf(tc.err); got != tc.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorBodyCarriesDetails(t *testing.T) {
	c := app.NewContext(0)
	Error(context.Background(), c, &errors.ConfirmationError{Action: "Early check-out", Remaining: "0h 30m"})

	if c.Response.StatusCode() != http.StatusConflict {
		t.Fatalf("status = %d", c.Response.StatusCode())
	}
	var body ErrorResponse
	if err := json.Unmarshal(c.Response.Body(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != errors.ConfirmationRequired.Code || body.Error.Details["remaining"] != "0h 30m" {
		t.Fatalf("body = %+v", body)
	}

	c = app.NewContext(0)
	Error(context.Background(), c, &errors.RemoteError{Kind: errors.ServerError, Message: "Invalid credentials"})
	_ = json.Unmarshal(c.Response.Body(), &body)
	if body.Error.Message != "Invalid credentials" || body.Error.Code != errors.ServerError.Code {
		t.Fatalf("body = %+v", body)
	}
}
