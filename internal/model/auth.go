package model

// Auth error codes surfaced in the 401 envelope so clients can distinguish
// an expired token (refreshable) from a bad one.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
)
