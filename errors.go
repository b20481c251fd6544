package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside rich errors.
const (
	TextCodeValidationError     = "VALIDATION_ERROR"
	TextCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	TextCodeWeakPassword        = "WEAK_PASSWORD"
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeAccountUnverified   = "ACCOUNT_UNVERIFIED"
	TextCodeAccountInactive     = "ACCOUNT_INACTIVE"
	TextCodeVerificationFailed  = "VERIFICATION_FAILED"
	TextCodeAuthorizationDenied = "AUTHORIZATION_DENIED"
	TextCodeTooManyAttempts     = "TOO_MANY_ATTEMPTS"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError  = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError  = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError      = "DATA_PARSE_ERROR"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword is the undifferentiated credential failure:
// wrong email and wrong password are indistinguishable to the caller.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountUnverified blocks sessions for accounts that never confirmed
// their email, independently of credential correctness.
var ErrAccountUnverified = goerrors.New("account email has not been verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountUnverified).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive blocks sessions for deactivated accounts.
var ErrAccountInactive = goerrors.New("account has been deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateEmail is returned when registering an email that already has a
// live user record.
var ErrDuplicateEmail = goerrors.New("email address is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is returned when a password fails the configured policy.
var ErrWeakPassword = goerrors.New("password does not meet the minimum strength policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrVerificationFailed is the single external failure for token redemption.
// Expired, unknown, and already-used tokens all collapse into this error so
// the endpoint cannot be used as a token-guessing oracle; the distinction is
// logged internally.
var ErrVerificationFailed = goerrors.New("verification link is invalid or has expired", goerrors.CategoryBadInput).
	WithTextCode(TextCodeVerificationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrAuthorizationDenied is the generic forbidden response. It never leaks
// why the gate denied the operation.
var ErrAuthorizationDenied = goerrors.New("operation not permitted", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAuthorizationDenied).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts enforces the login cool down window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeClaimsMappingError).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = goerrors.New("unable to parse data", goerrors.CategoryBadInput).
	WithTextCode(TextCodeDataParseError).
	WithCode(goerrors.CodeBadRequest)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired session token expired
var ErrTokenExpired = goerrors.New("session token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed session token could not be parsed
var ErrTokenMalformed = goerrors.New("session token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// VerificationFailureReason is the internal (logged, never surfaced)
// distinction between token redemption failures.
type VerificationFailureReason string

const (
	VerificationReasonInvalid VerificationFailureReason = "token_invalid"
	VerificationReasonExpired VerificationFailureReason = "token_expired"
	VerificationReasonUsed    VerificationFailureReason = "token_already_used"
)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateEmail reports whether err represents an email uniqueness
// violation, either the sentinel or a storage-level unique constraint race
// mapped by the repository.
func IsDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == TextCodeDuplicateEmail
	}
	return false
}
