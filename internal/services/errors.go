package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// Platform account states that need an operator and are never retried.
	ErrChallengeRequired  = errors.New("manual challenge required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRateLimited        = errors.New("rate limited")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsPermanent reports whether retrying the failed operation cannot help.
func IsPermanent(err error) bool {
	for _, marker := range []error{
		ErrValidation, ErrConfiguration, ErrNotFound,
		ErrChallengeRequired, ErrInvalidCredentials, ErrRateLimited,
	} {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// FailureKind maps an error to a short label stored in post history and
// shown in notifications.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrChallengeRequired):
		return "challenge_required"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return "validation"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

// FailureHint returns the operator action that usually resolves err.
func FailureHint(err error) string {
	switch FailureKind(err) {
	case "challenge_required":
		return "approve the login in the Instagram app, then run 'skyreel login'"
	case "invalid_credentials":
		return "check INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD"
	case "rate_limited":
		return "wait a few minutes before posting again"
	case "configuration":
		return "run 'skyreel config validate'"
	case "validation":
		return "inspect the output directory and the reel settings"
	case "external_tool":
		return "check that ffmpeg is installed and the output directory is writable"
	case "timeout":
		return "check network connectivity"
	case "":
		return ""
	default:
		return "retry later; check network connectivity"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
