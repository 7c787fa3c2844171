package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrNotFound         = errors.New("podium: not found")
	ErrUnauthorized     = errors.New("podium: unauthorized")
	ErrForbidden        = errors.New("podium: forbidden")
	ErrConflict         = errors.New("podium: conflict")
	ErrAlreadyVoted     = errors.New("podium: already voted")
	ErrGroupFull        = errors.New("podium: group is full")
	ErrStaleVersion     = errors.New("podium: changed by someone else")
	ErrNotAuthenticated = errors.New("podium: not signed in")
	ErrSessionDisposed  = errors.New("podium: session disposed")
)

// APIError is a non-2xx response from the server. It unwraps to one of the
// sentinel errors so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("podium: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("podium: %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "already_voted":
		return ErrAlreadyVoted
	case "group_full":
		return ErrGroupFull
	case "stale_version":
		return ErrStaleVersion
	}
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}

// Is lets a specific conflict match ErrConflict as well
func (e *APIError) Is(target error) bool {
	return target == ErrConflict && e.Status == http.StatusConflict
}

func decodeError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	apiErr := &APIError{Status: res.StatusCode}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}
