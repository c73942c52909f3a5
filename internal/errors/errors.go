package errors

import "fmt"

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Credential errors

// ErrNoTokenSource indicates that none of the token sources (file, JSON env
// blob, discrete env vars) yielded a usable credential.
type ErrNoTokenSource struct {
	Detail string
}

func (e *ErrNoTokenSource) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("no token source available: %s", e.Detail)
	}
	return "no token source available"
}

type ErrTokenParse struct {
	Source string
	Err    error
}

func (e *ErrTokenParse) Error() string {
	return fmt.Sprintf("failed to parse token from %s: %v", e.Source, e.Err)
}

func (e *ErrTokenParse) Unwrap() error {
	return e.Err
}

type ErrTokenRefresh struct {
	Err error
}

func (e *ErrTokenRefresh) Error() string {
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *ErrTokenRefresh) Unwrap() error {
	return e.Err
}

// ErrRefreshNotPossible indicates the credential is stale but lacks the parts
// required to attempt a refresh (refresh token, client id, client secret).
type ErrRefreshNotPossible struct {
	Missing string
}

func (e *ErrRefreshNotPossible) Error() string {
	return fmt.Sprintf("refresh not possible: missing %s", e.Missing)
}

// API errors

// ErrAPIStatus reports a non-success HTTP status from the Search Console API
// with the response body embedded for troubleshooting.
type ErrAPIStatus struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *ErrAPIStatus) Error() string {
	return fmt.Sprintf("API error %d from %s: %s", e.Code, e.Endpoint, e.Body)
}

// ErrNotAuthorized indicates an API call was skipped because no bearer token
// is available.
type ErrNotAuthorized struct {
	Err error
}

func (e *ErrNotAuthorized) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not authorized: %v", e.Err)
	}
	return "not authorized"
}

func (e *ErrNotAuthorized) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrDirectoryCreate struct {
	Path string
	Err  error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *ErrDirectoryCreate) Unwrap() error {
	return e.Err
}

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}
