package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrPromptMissing      = errors.New("required prompt is missing")
	ErrValidation         = errors.New("validation failed")
	ErrEmptyBatch         = errors.New("message batch is empty")
	ErrAgentFailed        = errors.New("agent run failed")
	ErrPersist            = errors.New("persistence failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrToolTimeout        = errors.New("tool call timed out")
)
