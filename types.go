package main

import (
	"net/http"
	"time"
)

// User represents a user record as stored in the database
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserRequest is the body of create and update calls
type UserRequest struct {
	FirstName string `json:"firstName" validate:"required,notblank"`
	LastName  string `json:"lastName" validate:"required,notblank"`
	Username  string `json:"username" validate:"required,notblank"`
	Email     string `json:"email" validate:"required,notblank,email"`
}

// UserResponse is the public view of a user. It is also what the cache holds.
type UserResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// MessageResponse carries a human readable confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is written for every failed request except validation
type ErrorResponse struct {
	Timestamp      time.Time `json:"timestamp"`
	HTTPStatusCode int       `json:"httpStatusCode"`
	HTTPStatus     string    `json:"httpStatus"`
	Message        string    `json:"message"`
}

// ValidationErrorResponse lists one message per violated field
type ValidationErrorResponse struct {
	Timestamp  time.Time `json:"timestamp"`
	StatusCode int       `json:"statusCode"`
	Messages   []string  `json:"messages"`
}

func toUserResponse(u User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
	}
}

// api represents the API server with its service and logger
type api struct {
	addr     string
	users    *userService
	validate *requestValidator
	logger   Logger
}

// ctxKey is used for context keys to avoid collisions
type ctxKey string

// statusRecorder wraps http.ResponseWriter to capture status codes for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}
