package api

import (
	"fmt"

	"github.com/pkg/errors"
)

// CodedError carries the collaborator's HTTP status and detail string.
// Validation and conflict failures (double accept, empty message) are
// surfaced as coded errors the UI can show; they are never retried.
type CodedError struct {
	Code   int    `json:"code"`
	Detail string `json:"detail"`
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Code, e.Detail)
}

// ErrUnauthorized marks an expired or invalid session. Always fatal to
// the current session: callers clear auth and tear down the transport.
var ErrUnauthorized = errors.New("api: unauthorized")

// IsConflict reports a validation/conflict failure (4xx other than 401).
func IsConflict(err error) bool {
	var ce *CodedError
	return errors.As(err, &ce)
}

// ConflictDetail extracts the server's detail text, if any.
func ConflictDetail(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Detail
	}
	return ""
}
