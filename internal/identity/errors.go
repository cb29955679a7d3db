package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Sign-in failure classes. Every provider error unwraps to one of these.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongCredential  = errors.New("wrong credential")
	ErrAlreadyInUse     = errors.New("credential already in use")
	ErrWeakCredential   = errors.New("weak credential")
	ErrRateLimited      = errors.New("too many attempts")
	ErrNetwork          = errors.New("network failure")
	ErrProviderDisabled = errors.New("sign-in provider disabled")
	ErrAuth             = errors.New("authentication failed")
)

// ErrNotSignedIn is returned by operations that need a current user.
var ErrNotSignedIn = errors.New("not signed in")

// AuthError carries the provider's raw code next to its class.
type AuthError struct {
	Kind error
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// classifyCode maps Identity Toolkit error messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func classifyCode(message string) *AuthError {
	code := strings.TrimSpace(strings.SplitN(message, ":", 2)[0])
	kind := ErrAuth
	switch code {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		kind = ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL",
		"INVALID_IDP_RESPONSE", "INVALID_CUSTOM_TOKEN", "CREDENTIAL_MISMATCH", "INVALID_ID_TOKEN":
		kind = ErrWrongCredential
	case "EMAIL_EXISTS", "FEDERATED_USER_ID_ALREADY_LINKED", "CREDENTIAL_ALREADY_IN_USE":
		kind = ErrAlreadyInUse
	case "WEAK_PASSWORD":
		kind = ErrWeakCredential
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "QUOTA_EXCEEDED":
		kind = ErrRateLimited
	case "OPERATION_NOT_ALLOWED", "ADMIN_ONLY_OPERATION", "USER_DISABLED", "CONFIGURATION_NOT_FOUND":
		kind = ErrProviderDisabled
	}
	return &AuthError{Kind: kind, Code: code}
}

// Message turns a sign-in error into text suitable for the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return "No account exists for this email."
	case errors.Is(err, ErrWrongCredential):
		return "Incorrect email or password."
	case errors.Is(err, ErrAlreadyInUse):
		return "An account already exists with this email."
	case errors.Is(err, ErrWeakCredential):
		return "Password should be at least 6 characters."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Please wait a moment and try again."
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your connection and try again."
	case errors.Is(err, ErrProviderDisabled):
		return "This sign-in method is not enabled."
	case errors.Is(err, ErrNotSignedIn):
		return "Please sign in first."
	default:
		return "Sign-in failed. Please try again."
	}
}
