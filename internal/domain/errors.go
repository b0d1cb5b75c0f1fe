package domain

import "errors"

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrFunctionNotFound = errors.New("function not found")
	ErrVariableNotFound = errors.New("variable not found")
	// ErrUnauthorized means the cloud rejected the user's access token.
	ErrUnauthorized = errors.New("device cloud rejected access token")
)
