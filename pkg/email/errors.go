package email

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid email sender configuration")
	ErrInvalidRecipient  = errors.New("invalid recipient email address")
	ErrMissingSubject    = errors.New("email subject is required")
	ErrMissingBody       = errors.New("email body is required")
	ErrFailedToSendEmail = errors.New("failed to send email")
)
