package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Auth       Kind = "auth"
	Fetch      Kind = "fetch"
	Domain     Kind = "domain"
	Validation Kind = "validation"
	NotFound   Kind = "not_found"
	Internal   Kind = "internal"
)

const defaultPublicMsg = "Something went wrong. Please try again."

type AppError struct {
	Kind      Kind
	PublicMsg string            // safe to show to the user
	Fields    map[string]string // per-field validation messages
	Err       error             // underlying cause, for logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.PublicMsg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.PublicMsg)
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error { return e.Err }

func AuthErr(err error) *AppError {
	return &AppError{Kind: Auth, PublicMsg: "Authentication with the CRM failed.", Err: err}
}

func FetchErr(publicMsg string, err error) *AppError {
	return &AppError{Kind: Fetch, PublicMsg: publicMsg, Err: err}
}

// DomainErr carries a server-supplied failure message from a create action.
func DomainErr(serverMsg string) *AppError {
	if serverMsg == "" {
		serverMsg = "The request was rejected."
	}
	return &AppError{Kind: Domain, PublicMsg: serverMsg}
}

func ValidationErr(publicMsg string, fields map[string]string) *AppError {
	return &AppError{Kind: Validation, PublicMsg: publicMsg, Fields: fields}
}

func NotFoundErr(publicMsg string) *AppError {
	return &AppError{Kind: NotFound, PublicMsg: publicMsg}
}

// Wrap hides an internal error behind the generic public message.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := As(err); ok {
		return ae
	}
	return &AppError{Kind: Internal, PublicMsg: defaultPublicMsg, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		switch ae.Kind {
		case Validation:
			return http.StatusBadRequest
		case NotFound:
			return http.StatusNotFound
		case Domain:
			return http.StatusUnprocessableEntity
		case Auth, Fetch:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.PublicMsg != "" {
		return ae.PublicMsg
	}
	return defaultPublicMsg
}
