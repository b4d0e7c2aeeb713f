package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for gateway failures.
var (
	// ErrGatewayUnavailable covers timeouts, connection failures and non-2xx responses.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrMalformedResponse means the gateway answered with a shape that cannot be used.
	ErrMalformedResponse = errors.New("malformed gateway response")
	// ErrMissingJobID means a submission was accepted without a usable job id.
	ErrMissingJobID = errors.New("gateway returned no job id")
)

// StatusError is a non-2xx gateway response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", ErrGatewayUnavailable, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrGatewayUnavailable }

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGatewayUnavailable) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrMissingJobID) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: timeout: %v", ErrGatewayUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: timeout: %v", ErrGatewayUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
