package service

import "errors"

var (
	ErrAuthenticationFailure = errors.New("callback authentication failed")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrContextMismatch       = errors.New("callback context does not match the payment")
	ErrUnknownResultCode     = errors.New("unknown result code")
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
	ErrNotificationFailure   = errors.New("notification failed")

	ErrInvalidRequest       = errors.New("invalid request")
	ErrCourseNotFound       = errors.New("course not found")
	ErrProviderUnsupported  = errors.New("provider is not supported")
	ErrAlreadyEnrolled      = errors.New("account is already enrolled in this course")
	ErrPaymentNotCompleted  = errors.New("payment is not completed")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrForbidden            = errors.New("forbidden")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrAuthenticationFailure, "authentication_failure"},
	{ErrPaymentNotFound, "payment_not_found"},
	{ErrContextMismatch, "context_mismatch"},
	{ErrUnknownResultCode, "unknown_result_code"},
	{ErrProviderUnavailable, "provider_unavailable"},
	{ErrNotificationFailure, "notification_failure"},
	{ErrInvalidRequest, "invalid_request"},
	{ErrCourseNotFound, "course_not_found"},
	{ErrProviderUnsupported, "provider_unsupported"},
	{ErrAlreadyEnrolled, "already_enrolled"},
	{ErrPaymentNotCompleted, "payment_not_completed"},
	{ErrPaymentAlreadyExists, "payment_already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrForbidden, "forbidden"},
}

// ErrorKind returns the stable machine-readable kind of err. Unclassified
// errors are "internal_error".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, item := range errorKinds {
		if errors.Is(err, item.err) {
			return item.kind
		}
	}
	return "internal_error"
}
