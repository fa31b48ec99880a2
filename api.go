package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	internalServerErrorMsg = "An error occurred while processing the request"

	// maxBodyBytes caps create and update bodies.
	maxBodyBytes = 1 << 20
)

func (a *api) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *api) createUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeUserRequest(w, r)
	if !ok {
		return
	}

	u, err := a.users.CreateUser(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (a *api) getUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.GetAllUsers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (a *api) getUserByUsernameHandler(w http.ResponseWriter, r *http.Request) {
	u, err := a.users.GetUserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (a *api) getUserByIdHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r.PathValue("userId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	u, err := a.users.GetUserByID(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (a *api) updateUserByIdHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r.PathValue("userId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	req, ok := a.decodeUserRequest(w, r)
	if !ok {
		return
	}

	u, err := a.users.UpdateUser(r.Context(), id, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (a *api) deleteUserByIdHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r.PathValue("userId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	msg, err := a.users.DeleteUser(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// decodeUserRequest parses and validates the body. On failure the error
// response has already been written.
func (a *api) decodeUserRequest(w http.ResponseWriter, r *http.Request) (UserRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorBody(w, http.StatusRequestEntityTooLarge, "request body too large")
			return UserRequest{}, false
		}
		writeErrorBody(w, http.StatusBadRequest, "invalid json body")
		return UserRequest{}, false
	}

	if err := a.validate.Struct(req); err != nil {
		a.writeError(w, r, err)
		return UserRequest{}, false
	}

	return req, true
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidUserID
	}
	return id, nil
}

// writeError translates a service error into the error response.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Timestamp:  time.Now(),
			StatusCode: http.StatusBadRequest,
			Messages:   ve.Messages,
		})
	case errors.Is(err, ErrUsernameExists):
		writeErrorBody(w, http.StatusConflict, "Username already exists")
	case errors.Is(err, ErrEmailExists):
		writeErrorBody(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, ErrUserNotFound):
		a.logger.Error(r.Context(), err.Error())
		writeErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidUserID):
		writeErrorBody(w, http.StatusBadRequest, "userId must be a number")
	default:
		a.logger.Error(r.Context(), "request failed", "err", err)
		writeErrorBody(w, http.StatusInternalServerError, internalServerErrorMsg)
	}
}

func writeErrorBody(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{
		Timestamp:      time.Now(),
		HTTPStatusCode: code,
		HTTPStatus:     statusName(code),
		Message:        msg,
	})
}

// statusName renders a code the way clients expect it: 409 -> "CONFLICT".
func statusName(code int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
