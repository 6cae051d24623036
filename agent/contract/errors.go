package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnknownAction   = errors.New("action is not registered")
	ErrDuplicateAction = errors.New("action is already registered")
	ErrHandler         = errors.New("action handler failed")
	ErrResearchFailure = errors.New("research failed")
	ErrAlreadyRunning  = errors.New("task is already running")
	ErrSessionClosed   = errors.New("session is closed")
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
)
