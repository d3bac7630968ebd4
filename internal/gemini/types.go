package gemini

import (
	"errors"
	"fmt"
)

// Image is a generated picture as returned by the model.
type Image struct {
	Data     []byte
	MimeType string
}

type Status int

const (
	StatusSuccess Status = iota + 1
	StatusBlocked
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBlocked:
		return "blocked"
	case StatusMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Result is the classified model response. Image is set only for
// StatusSuccess, Reason only for StatusBlocked.
type Result struct {
	Status Status
	Image  Image
	Reason string
}

var ErrMalformedResponse = errors.New("response has no image part")

type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("model declined: %s", e.Reason)
}

func (r Result) err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusBlocked:
		return &BlockedError{Reason: r.Reason}
	default:
		return ErrMalformedResponse
	}
}
