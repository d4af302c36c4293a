package engine

import "fmt"

// Kind classifies scrape failures so the API layer can map each one to
// a stable status code and message.
type Kind int

const (
	KindInvalidURL Kind = iota
	KindUnknownCountry
	KindInvalidASIN
	KindCaptcha
	KindTimeout
	KindRenderError
	KindBreakerOpen
	KindRobotsDenied
	KindNoExtractor
)

// Error is the engine's failure type. Country is the storefront code
// when routing succeeded before the failure, empty otherwise.
type Error struct {
	Kind    Kind
	Country string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, country, message string, cause error) *Error {
	return &Error{Kind: kind, Country: country, Message: message, cause: cause}
}
