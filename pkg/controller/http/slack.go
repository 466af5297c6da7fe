package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
)

// maxClockSkew is how far the request timestamp may be from now, in either direction
const maxClockSkew = 1000 * time.Second

// Every rejection is an ErrAuthenticationFailure
var (
	errMissingHeader     = goerr.Wrap(usecase.ErrAuthenticationFailure, "missing signature header")
	errInvalidTimestamp  = goerr.Wrap(usecase.ErrAuthenticationFailure, "invalid timestamp")
	errClockSkew         = goerr.Wrap(usecase.ErrAuthenticationFailure, "clock skew")
	errSignatureMismatch = goerr.Wrap(usecase.ErrAuthenticationFailure, "signature mismatch")
)

// verifySlackSignature verifies the Slack request signature
// This is a pure function that can be used independently for testing
func verifySlackSignature(signingSecret, timestamp, signature string, body []byte, now time.Time) error {
	if timestamp == "" || signature == "" {
		return goerr.Wrap(errMissingHeader, "signature headers are required")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return goerr.Wrap(errInvalidTimestamp, "timestamp is not an integer", goerr.V("timestamp", timestamp))
	}

	skew := now.Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(maxClockSkew/time.Second) {
		return goerr.Wrap(errClockSkew, "timestamp out of range",
			goerr.V("timestamp", timestamp),
			goerr.V("now", now.Unix()),
			goerr.V("skew", skew))
	}

	// Compute expected signature
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(signingSecret))
	if _, err := mac.Write([]byte(baseString)); err != nil {
		return goerr.Wrap(err, "failed to compute HMAC")
	}
	expectedSignature := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return goerr.Wrap(errSignatureMismatch, "signature does not match")
	}

	return nil
}

// signatureRejection maps a verification error to the response sent to the caller
func signatureRejection(err error) (int, string) {
	var ge *goerr.Error
	switch {
	case errors.Is(err, errMissingHeader):
		return http.StatusBadRequest, "Some header is missing."
	case errors.Is(err, errInvalidTimestamp):
		return http.StatusBadRequest, "Invalid timestamp."
	case errors.Is(err, errClockSkew):
		if errors.As(err, &ge) {
			if skew, ok := ge.Values()["skew"].(int64); ok {
				return http.StatusForbidden, fmt.Sprintf("Clock skew: %d.", skew)
			}
		}
		return http.StatusForbidden, "Clock skew."
	case errors.Is(err, errSignatureMismatch):
		return http.StatusForbidden, "Signature does not match."
	default:
		return http.StatusForbidden, http.StatusText(http.StatusForbidden)
	}
}

// SlackSignatureMiddleware creates a middleware that verifies Slack request signatures.
// Rejected requests never reach the next handler.
func SlackSignatureMiddleware(signingSecret string, clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Read body
			body, err := io.ReadAll(r.Body)
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
				return
			}
			defer func() {
				if err := r.Body.Close(); err != nil {
					logger := logging.From(ctx)
					logger.Error("failed to close request body", "error", err)
				}
			}()

			timestamp := r.Header.Get("X-Slack-Request-Timestamp")
			signature := r.Header.Get("X-Slack-Signature")

			if err := verifySlackSignature(signingSecret, timestamp, signature, body, clock()); err != nil {
				status, msg := signatureRejection(err)
				logging.From(ctx).Warn("slack signature verification failed",
					"error", err,
					"status", status,
					"path", r.URL.Path,
				)
				http.Error(w, msg, status)
				return
			}

			r.Body = io.NopCloser(bytes.NewBuffer(body))
			next.ServeHTTP(w, r)
		})
	}
}
