package resolver

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery          = errors.New("query is empty")
	ErrEmptyQuestion       = errors.New("question is empty")
	ErrMalformedResponse   = errors.New("malformed AI response")
	ErrTransportFailure    = errors.New("AI service unreachable")
	ErrImageIdentification = errors.New("image identification failed")
)

type Kind int

const (
	MalformedResponse Kind = iota + 1
	TransportFailure
	ImageIdentificationFailure
)

func (k Kind) String() string {
	switch k {
	case MalformedResponse:
		return "MalformedResponse"
	case TransportFailure:
		return "TransportFailure"
	case ImageIdentificationFailure:
		return "ImageIdentificationFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case MalformedResponse:
		return ErrMalformedResponse
	case TransportFailure:
		return ErrTransportFailure
	case ImageIdentificationFailure:
		return ErrImageIdentification
	}
	return nil
}

// ResolutionError matches its kind's sentinel with errors.Is and also
// unwraps to the underlying cause.
type ResolutionError struct {
	Kind Kind
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns the notification text shown for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedResponse):
		return "I found the product, but couldn't organize the price data."
	case errors.Is(err, ErrTransportFailure):
		return "Unable to retrieve live prices. Please check your connection."
	case errors.Is(err, ErrImageIdentification):
		return "Could not identify image. Please try again."
	case errors.Is(err, ErrEmptyQuery):
		return "Please enter a product to search for."
	default:
		return "Something went wrong."
	}
}
