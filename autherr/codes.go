package autherr

import "net/http"

// Code is a stable, wire-visible error identifier.
type Code string

const (
	InternalError               Code = "INTERNAL_ERROR"
	FeatureDisabled             Code = "FEATURE_DISABLED"
	ProviderNotFound            Code = "PROVIDER_NOT_FOUND"
	VerificationEmailNotEnabled Code = "VERIFICATION_EMAIL_NOT_ENABLED"
	FailedToCreateSession       Code = "FAILED_TO_CREATE_SESSION"
	InvalidInput                Code = "INVALID_INPUT"
	EmailRequired               Code = "EMAIL_REQUIRED"
	PasswordTooShort            Code = "PASSWORD_TOO_SHORT"
	PasswordTooLong             Code = "PASSWORD_TOO_LONG"
	InvalidCredentials          Code = "INVALID_CREDENTIALS"
	InvalidEmailOrPassword      Code = "INVALID_EMAIL_OR_PASSWORD"
	EmailNotVerified            Code = "EMAIL_NOT_VERIFIED"
	UserAlreadyExists           Code = "USER_ALREADY_EXISTS"
	SessionNotFound             Code = "SESSION_NOT_FOUND"
	SessionExpired              Code = "SESSION_EXPIRED"
)

var statusByCode = map[Code]int{
	InvalidEmailOrPassword: http.StatusUnauthorized,
	InvalidCredentials:     http.StatusUnauthorized,
	EmailNotVerified:       http.StatusForbidden,
	FeatureDisabled:        http.StatusForbidden,
	ProviderNotFound:       http.StatusNotFound,
	SessionNotFound:        http.StatusNotFound,
}

// Status maps an error code to its HTTP status. Codes without an explicit
// entry map to 400.
func Status(code Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
