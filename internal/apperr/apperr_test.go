package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", ValidationErr("missing order", nil), http.StatusBadRequest},
		{"domain", DomainErr("duplicate request"), http.StatusUnprocessableEntity},
		{"auth", AuthErr(errors.New("401")), http.StatusBadGateway},
		{"fetch wrapped", fmt.Errorf("failed to load: %w", FetchErr("load failed", nil)), http.StatusBadGateway},
		{"not found", NotFoundErr("no reward"), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(DomainErr("Order already converted")); got != "Order already converted" {
		t.Errorf("PublicMessage = %q", got)
	}
	if got := PublicMessage(errors.New("db down")); got != defaultPublicMsg {
		t.Errorf("PublicMessage for plain error = %q", got)
	}
	if got := PublicMessage(DomainErr("")); got == "" {
		t.Error("empty server message should fall back to a default")
	}
}

func TestIsAndWrap(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("query: %w", FetchErr("load failed", cause))
	if !Is(err, Fetch) {
		t.Fatal("expected fetch kind")
	}
	if Is(err, Auth) {
		t.Fatal("unexpected auth kind")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if w := Wrap(err); w.Kind != Fetch {
		t.Errorf("Wrap changed kind to %s", w.Kind)
	}
	if w := Wrap(cause); w.Kind != Internal {
		t.Errorf("Wrap(plain) kind = %s", w.Kind)
	}
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}
