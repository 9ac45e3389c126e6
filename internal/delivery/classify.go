package delivery

import (
	"errors"
	"strings"

	"rondo/internal/telegram"
)

// sendFailure buckets a transport send error for the fallback ladder.
type sendFailure int

const (
	// failureOther covers anything the ladder has no specific route for.
	failureOther sendFailure = iota
	// failureTooLong means the clip exceeds the note duration ceiling. The
	// artifact itself is the blocker, so no alternate mode can help.
	failureTooLong
	// failureForbidden means the chat or the peer's privacy settings
	// disallow this media form. A plainer form may still get through.
	failureForbidden
)

// classifySendError is the only place that inspects transport error text.
// Telegram reports restrictions as human-readable descriptions with no
// stable code, so matching on wording is unavoidable; keeping it in one
// function keeps the blast radius of a wording change to one function.
func classifySendError(err error) sendFailure {
	var api *telegram.APIError
	text := err.Error()
	if errors.As(err, &api) {
		text = api.Description
	}
	text = strings.ToLower(text)

	if strings.Contains(text, "too long") {
		return failureTooLong
	}
	restricted := strings.Contains(text, "forbidden") ||
		strings.Contains(text, "not enough rights")
	mediaKind := strings.Contains(text, "voice") ||
		strings.Contains(text, "video")
	if restricted && mediaKind {
		return failureForbidden
	}
	return failureOther
}
