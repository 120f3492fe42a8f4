package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status.
const (
	TextCodeMissingToken   = "AUTH_MISSING_TOKEN"
	TextCodeTokenDenied    = "AUTH_TOKEN_DENIED"
	TextCodeTokenExpired   = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed = "AUTH_TOKEN_MALFORMED"
	TextCodeSecretMissing  = "AUTH_SECRET_MISSING"
	TextCodeEmailTaken     = "AUTH_EMAIL_TAKEN"
	TextCodeUserNotFound   = "AUTH_USER_NOT_FOUND"
	TextCodeBadCredentials = "AUTH_BAD_CREDENTIALS"
	TextCodeAdminRequired  = "AUTH_ADMIN_REQUIRED"
	TextCodeEmptyPassword  = "AUTH_EMPTY_PASSWORD"
)

// ErrMissingToken is returned when the request carries no refresh cookie.
var ErrMissingToken = goerrors.New("Missing token!", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeMissingToken)

// ErrTokenDenied is returned when the refresh token is on the denylist.
var ErrTokenDenied = goerrors.New("Invalid token!", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeTokenDenied)

// ErrRefreshSecretMissing means no verification secret was configured for
// refresh tokens. This is an operator error, not a client one.
var ErrRefreshSecretMissing = goerrors.New("JWT refresh secret is not configured!", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeSecretMissing)

// ErrSigningSecretMissing covers any token issuance attempted without a
// configured signing secret.
var ErrSigningSecretMissing = goerrors.New("token signing secret is not configured", goerrors.CategoryInternal).
	WithCode(goerrors.CodeInternal).
	WithTextCode(TextCodeSecretMissing)

// ErrTokenExpired reports a structurally valid token past its expiry.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed reports a token that failed signature or structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = goerrors.New("a user with this email already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrBadCredentials is returned when the supplied password does not match.
var ErrBadCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeBadCredentials)

// ErrAdminRequired is returned by the role gate for non-admin identities.
var ErrAdminRequired = goerrors.New("Admin access required!", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeAdminRequired)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = goerrors.New("hashed password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeBadCredentials)
