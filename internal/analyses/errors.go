package analyses

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeValidation         = "VALIDATION_ERROR"
	ErrorCodeNotFound           = "NOT_FOUND"
	ErrorCodeCredentialRequired = "CREDENTIAL_REQUIRED"
	ErrorCodeQueueNotConfigured = "QUEUE_NOT_CONFIGURED"
	ErrorCodeInternal           = "INTERNAL_ERROR"
)
