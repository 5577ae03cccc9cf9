package platform

import (
	"errors"
	"strings"

	"github.com/Davincible/goinsta/v3"

	"skyreel/internal/services"
)

var (
	challengeTokens   = []string{"challenge", "checkpoint", "two_factor", "two-factor", "2fa"}
	credentialTokens  = []string{"bad_password", "bad password", "incorrect password", "invalid_user", "invalid user", "login_required", "login required", "invalid credentials"}
	rateLimitTokens   = []string{"please wait", "rate limit", "too many requests", "429", "feedback_required"}
	accountErrMarkers = []error{services.ErrChallengeRequired, services.ErrInvalidCredentials, services.ErrRateLimited}
)

// clientSentinels maps goinsta's exported errors onto markers before any
// message matching.
var clientSentinels = []struct {
	err    error
	marker error
}{
	{goinsta.ErrInvalidFormat, services.ErrValidation},
	{goinsta.ErrInvalidImage, services.ErrValidation},
	{goinsta.ErrChallengeRequired, services.ErrChallengeRequired},
	{goinsta.ErrCheckpointRequired, services.ErrChallengeRequired},
	{goinsta.ErrChallengeFailed, services.ErrChallengeRequired},
	{goinsta.ErrBadPassword, services.ErrInvalidCredentials},
	{goinsta.ErrTooManyRequests, services.ErrRateLimited},
}

// ClassifyError maps a raw platform client error onto the service markers.
// Rejected media, challenge, credential and rate-limit failures become
// permanent markers; anything else is treated as transient.
func ClassifyError(operation string, err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range accountErrMarkers {
		if errors.Is(err, marker) {
			return err
		}
	}
	if errors.Is(err, ErrNotLoggedIn) || services.IsPermanent(err) {
		return err
	}

	for _, sentinel := range clientSentinels {
		if errors.Is(err, sentinel.err) {
			return services.Wrap(sentinel.marker, "platform", operation, "", err)
		}
	}

	message := strings.ToLower(err.Error())
	switch {
	case containsAny(message, challengeTokens):
		return services.Wrap(services.ErrChallengeRequired, "platform", operation, "", err)
	case containsAny(message, credentialTokens):
		return services.Wrap(services.ErrInvalidCredentials, "platform", operation, "", err)
	case containsAny(message, rateLimitTokens):
		return services.Wrap(services.ErrRateLimited, "platform", operation, "", err)
	default:
		return services.Wrap(services.ErrTransient, "platform", operation, "", err)
	}
}

func containsAny(message string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
