package bridgeerr

import (
	"errors"
	"testing"
)

func TestBridgeErrorRetryable(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{200, false},
		{404, false},
		{500, false},
		{502, true},
		{503, true},
		{504, true},
	}
	for _, c := range cases {
		e := &BridgeError{Status: c.status}
		if got := e.Retryable(); got != c.want {
			t.Errorf("status %d: Retryable() = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestFatalErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	fe := NewFatal("frame create failed", cause)
	if errors.Unwrap(fe) != cause {
		t.Fatal("FatalError.Unwrap did not return the wrapped cause")
	}
	if fe.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestNetworkErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	ne := &NetworkError{Cause: cause}
	if errors.Unwrap(ne) != cause {
		t.Fatal("NetworkError.Unwrap did not return the wrapped cause")
	}
}
