package httpapi

import (
	"errors"
	"net/http"

	actionx "github.com/tanpawarit/slide-copilot/agent/action"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

type errorResponse struct {
	Error    string            `json:"error"`
	Problems []actionx.Problem `json:"problems,omitempty"`
}

// statusFor maps a core error to an HTTP status. Document errors are checked
// before ErrHandler because handlers wrap them.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, contractx.ErrUnknownAction), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, deckx.ErrIndexOutOfRange),
		errors.Is(err, deckx.ErrInvariantViolation),
		errors.Is(err, contractx.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, contractx.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, contractx.ErrHandler):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	var verr *actionx.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	return resp
}
