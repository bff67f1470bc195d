// Package businessflow contains the listing lifecycle, inquiry routing, filter catalog and search use cases
package businessflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies an error for the caller independent of its code
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindNotFound        ErrorKind = "not_found"
	KindPermission      ErrorKind = "permission"
	KindConflict        ErrorKind = "conflict"
	KindCascadeFailed   ErrorKind = "cascade_failed"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindInternal        ErrorKind = "internal"
)

// Business flow error constants
var (
	// Listing errors
	ErrCarNotFound       = errors.New("car not found")
	ErrInvalidListing    = errors.New("invalid listing")
	ErrMissingImages     = errors.New("listing has no images")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrCascadeFailed     = errors.New("dependent inquiries could not be deleted")

	// Inquiry errors
	ErrInquiryNotFound      = errors.New("inquiry not found")
	ErrInvalidInquiry       = errors.New("invalid inquiry")
	ErrUnknownAgent         = errors.New("agent does not resolve to a sales agent")
	ErrMissingClosureReport = errors.New("closing an inquiry requires remarks")
	ErrInquiryClosed        = errors.New("inquiry is closed")

	// Catalog errors
	ErrStaleCatalog   = errors.New("filter catalog version is stale")
	ErrCatalogBusy    = errors.New("filter catalog is being updated")
	ErrUnknownBrand   = errors.New("unknown brand")
	ErrUnknownModel   = errors.New("unknown model")
	ErrInvalidCatalog = errors.New("invalid filter catalog")

	// Actor errors
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

var sentinelKinds = map[error]ErrorKind{
	ErrCarNotFound:          KindNotFound,
	ErrInquiryNotFound:      KindNotFound,
	ErrInvalidListing:       KindValidation,
	ErrInvalidInquiry:       KindValidation,
	ErrMissingImages:        KindValidation,
	ErrMissingClosureReport: KindValidation,
	ErrUnknownAgent:         KindValidation,
	ErrUnknownBrand:         KindValidation,
	ErrUnknownModel:         KindValidation,
	ErrInvalidCatalog:       KindValidation,
	ErrInvalidPage:          KindValidation,
	ErrInvalidPageSize:      KindValidation,
	ErrInvalidTransition:    KindConflict,
	ErrInquiryClosed:        KindConflict,
	ErrStaleCatalog:         KindConflict,
	ErrCatalogBusy:          KindConflict,
	ErrPermissionDenied:     KindPermission,
	ErrCascadeFailed:        KindCascadeFailed,
	ErrInvalidCredentials:   KindUnauthenticated,
	ErrAccountInactive:      KindUnauthenticated,
}

// KindOf resolves the kind of err through its wrap chain.
// Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	// cascade failure outranks whatever caused it
	if errors.Is(err, ErrCascadeFailed) {
		return KindCascadeFailed
	}
	for sentinel, kind := range sentinelKinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// Kind is the kind of the wrapped error
func (e *BusinessError) Kind() ErrorKind {
	return KindOf(e.Err)
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ValidationError is a field-keyed validation failure. The client must correct the input.
type ValidationError struct {
	Err    error
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%v (%s)", e.Err, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewInvalidListing builds the field-keyed error returned by listing create and update
func NewInvalidListing(fields map[string]string) *ValidationError {
	return &ValidationError{Err: ErrInvalidListing, Fields: fields}
}

// FieldErrors returns the field map of a ValidationError anywhere in the chain
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

func IsCarNotFound(err error) bool {
	return errors.Is(err, ErrCarNotFound)
}

func IsInquiryNotFound(err error) bool {
	return errors.Is(err, ErrInquiryNotFound)
}

func IsInvalidListing(err error) bool {
	return errors.Is(err, ErrInvalidListing)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsUnknownAgent(err error) bool {
	return errors.Is(err, ErrUnknownAgent)
}

func IsMissingClosureReport(err error) bool {
	return errors.Is(err, ErrMissingClosureReport)
}

func IsStaleCatalog(err error) bool {
	return errors.Is(err, ErrStaleCatalog)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsCascadeFailed(err error) bool {
	return errors.Is(err, ErrCascadeFailed)
}
