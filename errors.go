package main

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the store and the user service. Match with errors.Is.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
	ErrInvalidUserID  = errors.New("invalid user id")
)

// ValidationError holds every violated field of a request, not just the first.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// notFoundError keeps ErrUserNotFound matchable while carrying the
// message that is shown to the client.
type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrUserNotFound }
