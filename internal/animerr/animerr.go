// Package animerr defines the closed error taxonomy surfaced by the search
// progress animation.
package animerr

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind tags an AnimationError.
type Kind string

// Error kinds.
const (
	KindConnection Kind = "connection"
	KindParsing    Kind = "parsing"
	KindTimeout    Kind = "timeout"
	KindServer     Kind = "server"
	KindRateLimit  Kind = "rate_limit"
	KindNoResults  Kind = "no_results"
	KindUnknown    Kind = "unknown"
)

// Kinds lists every error kind.
var Kinds = []Kind{
	KindConnection, KindParsing, KindTimeout, KindServer,
	KindRateLimit, KindNoResults, KindUnknown,
}

// AnimationError is a failure placed into the animation store.
// Message is diagnostic; UserMessage is safe to display.
type AnimationError struct {
	Type        Kind   `json:"type"`
	Message     string `json:"message"`
	UserMessage string `json:"user_message"`
	Retryable   bool   `json:"retryable"`
}

// Error implements error.
func (e *AnimationError) Error() string {
	if e.Message == "" {
		return string(e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type kindInfo struct {
	userMessage string
	retryable   bool
}

var kindTable = map[Kind]kindInfo{
	KindConnection: {"We couldn't reach the search service. Check your connection and try again.", true},
	KindParsing:    {"We received an unexpected response. Please try a different search.", false},
	KindTimeout:    {"The search took too long to respond. Please try again.", true},
	KindServer:     {"Something went wrong on our side. Please try again in a moment.", true},
	KindRateLimit:  {"You've made a lot of searches recently. Please wait a moment and try again.", true},
	KindNoResults:  {"No planning applications matched your search. Try broadening your query.", false},
	KindUnknown:    {"Something unexpected happened. Please try again.", false},
}

// New builds a fully populated AnimationError for kind.
// Unrecognised kinds are treated as KindUnknown.
func New(kind Kind, message string) *AnimationError {
	info, ok := kindTable[kind]
	if !ok {
		kind = KindUnknown
		info = kindTable[KindUnknown]
	}
	return &AnimationError{
		Type:        kind,
		Message:     message,
		UserMessage: info.userMessage,
		Retryable:   info.retryable,
	}
}

// FromError classifies an arbitrary error. An *AnimationError anywhere in
// the chain is returned unchanged. Nil maps to nil.
func FromError(err error) *AnimationError {
	if err == nil {
		return nil
	}

	var ae *AnimationError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(KindTimeout, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return New(KindTimeout, err.Error())
		}
		return New(KindConnection, err.Error())
	}

	return New(KindUnknown, err.Error())
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindTable[k]; !ok {
		return "", fmt.Errorf("unknown error kind %q", s)
	}
	return k, nil
}
