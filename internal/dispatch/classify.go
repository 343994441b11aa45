package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"ccbot/internal/constants"
	apperrors "ccbot/pkg/errors"
)

// edgeAbortSignature is the body an edge proxy serves when it drops a
// worker-to-worker connection.
const edgeAbortSignature = "error code: 1042"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ClassifyTransportError interprets a failed round trip. attemptCtx is the
// per-attempt context, so an expired deadline there is a local timeout.
func ClassifyTransportError(attemptCtx context.Context, err error) *apperrors.Error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrTimeout.
			WithMessage(fmt.Sprintf("request timed out: %v", err)).
			WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrTimeout.
			WithMessage(fmt.Sprintf("request timed out: %v", err)).
			WithCause(err)
	}

	if isConnectionAborted(err) {
		return apperrors.ErrConnectionAborted.
			WithMessage("connection aborted: the worker may be missing CORS headers or refusing connections").
			WithCause(err)
	}

	return apperrors.ErrNetwork.
		WithMessage(fmt.Sprintf("request failed: %v", err)).
		WithCause(err)
}

func isConnectionAborted(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return strings.Contains(err.Error(), edgeAbortSignature)
}

// ClassifyResponse interprets a non-2xx response. JSON bodies contribute their
// error, message and error_code fields; other bodies are truncated for
// diagnostics. The response body is consumed.
func ClassifyResponse(resp *http.Response) *apperrors.Error {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		return apperrors.HTTPStatus(resp.StatusCode,
			fmt.Sprintf("worker responded %d: %v", resp.StatusCode, readErr)).
			WithCause(readErr)
	}

	body := string(raw)
	// The edge serves its 1042 page with an error status; it is still an abort.
	if strings.Contains(body, edgeAbortSignature) {
		return apperrors.ErrConnectionAborted.
			WithMessage("connection aborted by edge (error code 1042)").
			WithDetail("status", resp.StatusCode)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var payload struct {
			Error     string `json:"error"`
			Message   string `json:"message"`
			ErrorCode string `json:"error_code"`
		}
		if err := json.Unmarshal(raw, &payload); err == nil {
			msg := payload.Error
			if msg == "" {
				msg = payload.Message
			}
			if msg == "" {
				msg = "unknown error"
			}
			code := payload.ErrorCode
			if code == "" {
				code = "unknown"
			}
			return apperrors.HTTPStatus(resp.StatusCode,
				fmt.Sprintf("worker responded with error: %s - %s", code, msg)).
				WithDetail("error_code", code)
		}
	}

	return apperrors.HTTPStatus(resp.StatusCode,
		fmt.Sprintf("worker responded with non-JSON error: %s", truncateRunes(body, constants.DiagnosticBodyLimit)))
}

// decodeSuccess reads a 2xx body, which must be a JSON object.
func decodeSuccess(resp *http.Response) (map[string]interface{}, *apperrors.Error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ErrNetwork.
			WithMessage(fmt.Sprintf("failed to read worker response: %v", err)).
			WithCause(err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperrors.ErrUnknown.
			WithMessage(fmt.Sprintf("worker responded %d without a JSON body: %s",
				resp.StatusCode, truncateRunes(string(raw), constants.DiagnosticBodyLimit))).
			WithCause(err)
	}
	return data, nil
}

func isSuccess(status int) bool {
	return status >= constants.HTTPStatusOKMin && status < constants.HTTPStatusOKMax
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
