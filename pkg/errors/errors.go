// Package errors defines the typed business errors returned by the workflow
// services, each carrying an English and an Arabic message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/trous-aml/trous_service/pkg/i18n"
)

// Code identifies a class of business error. It is also the "code" field of
// the JSON error envelope.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeAlreadyTerminal   Code = "ALREADY_TERMINAL"
	CodeFourEyes          Code = "FOUR_EYES_VIOLATION"
	CodeMissingFields     Code = "MISSING_FIELDS"
	CodeAlreadyReviewed   Code = "ALREADY_REVIEWED"
	CodeAlreadySubmitted  Code = "ALREADY_SUBMITTED"
	CodeNotImplemented    Code = "NOT_IMPLEMENTED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeForbidden         Code = "FORBIDDEN"
	CodeExpired           Code = "EXPIRED"
)

// AppError is a business-rule rejection. Two AppErrors match under errors.Is
// when their codes are equal, so the sentinels below can be used as targets.
type AppError struct {
	Code      Code
	Message   string
	MessageAR string
	// Field names the offending input for validation errors.
	Field string
	// Fields lists every missing field for readiness errors.
	Fields []string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code only.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Localized returns the message in the requested locale.
func (e *AppError) Localized(locale i18n.Locale) string {
	return i18n.Pick(locale, e.Message, e.MessageAR)
}

// HTTPStatus maps the error class to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeMissingFields:
		return http.StatusBadRequest
	case CodeNotImplemented:
		return http.StatusUnprocessableEntity
	case CodeInvalidTransition, CodeAlreadyTerminal, CodeAlreadyReviewed, CodeAlreadySubmitted, CodeConflict:
		return http.StatusConflict
	case CodeFourEyes, CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Sentinels usable with errors.Is.
var (
	ErrValidation        = &AppError{Code: CodeValidation}
	ErrInvalidTransition = &AppError{Code: CodeInvalidTransition}
	ErrAlreadyTerminal   = &AppError{Code: CodeAlreadyTerminal}
	ErrFourEyes          = &AppError{Code: CodeFourEyes}
	ErrMissingFields     = &AppError{Code: CodeMissingFields}
	ErrAlreadyReviewed   = &AppError{Code: CodeAlreadyReviewed}
	ErrAlreadySubmitted  = &AppError{Code: CodeAlreadySubmitted}
	ErrNotImplemented    = &AppError{Code: CodeNotImplemented}
	ErrNotFound          = &AppError{Code: CodeNotFound}
	ErrConflict          = &AppError{Code: CodeConflict}
	ErrForbidden         = &AppError{Code: CodeForbidden}
	ErrExpired           = &AppError{Code: CodeExpired}
)

// As extracts an AppError from an error chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf is the response status for any error; non-business errors are 500.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// NewValidationError reports bad input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:      CodeValidation,
		Message:   message,
		MessageAR: "البيانات المدخلة غير صالحة: " + message,
	}
}

// NewFieldError reports bad input for a named field.
func NewFieldError(field, message string) *AppError {
	return &AppError{
		Code:      CodeValidation,
		Field:     field,
		Message:   fmt.Sprintf("%s: %s", field, message),
		MessageAR: fmt.Sprintf("الحقل %s غير صالح", field),
	}
}

// NewLocalizedValidationError reports bad input with both messages supplied.
func NewLocalizedValidationError(field, en, ar string) *AppError {
	return &AppError{Code: CodeValidation, Field: field, Message: en, MessageAR: ar}
}

// InvalidTransition reports a requested state that is not a successor of the current one.
func InvalidTransition(entity, from, to string) *AppError {
	return &AppError{
		Code:      CodeInvalidTransition,
		Message:   fmt.Sprintf("cannot move %s from %q to %q", entity, from, to),
		MessageAR: fmt.Sprintf("لا يمكن نقل %s من الحالة %q إلى %q", entityAR(entity), from, to),
	}
}

// AlreadyTerminal reports a transition attempted from a final state.
func AlreadyTerminal(entity, state string) *AppError {
	return &AppError{
		Code:      CodeAlreadyTerminal,
		Message:   fmt.Sprintf("%s is already %q and cannot change", entity, state),
		MessageAR: fmt.Sprintf("%s في حالة نهائية %q ولا يمكن تعديلها", entityAR(entity), state),
	}
}

// FourEyesViolation reports an approval attempted by the record's author.
func FourEyesViolation(entity string) *AppError {
	return &AppError{
		Code:      CodeFourEyes,
		Message:   fmt.Sprintf("%s must be approved by a different user than its creator", entity),
		MessageAR: fmt.Sprintf("يجب اعتماد %s من مستخدم غير منشئه (مبدأ العيون الأربع)", entityAR(entity)),
	}
}

// MissingFields lists every required field that is empty.
func MissingFields(fields []string) *AppError {
	return &AppError{
		Code:      CodeMissingFields,
		Fields:    fields,
		Message:   "missing required fields: " + strings.Join(fields, ", "),
		MessageAR: "حقول مطلوبة مفقودة: " + strings.Join(fields, "، "),
	}
}

// AlreadyReviewed reports a second review of a screening result.
func AlreadyReviewed() *AppError {
	return &AppError{
		Code:      CodeAlreadyReviewed,
		Message:   "this screening result has already been reviewed",
		MessageAR: "تمت مراجعة نتيجة الفحص هذه مسبقاً",
	}
}

// AlreadySubmitted reports a second submission of a public KYC form.
func AlreadySubmitted() *AppError {
	return &AppError{
		Code:      CodeAlreadySubmitted,
		Message:   "this KYC form has already been submitted",
		MessageAR: "تم إرسال نموذج اعرف عميلك هذا مسبقاً",
	}
}

// NotImplemented reports a feature that exists in the model but has no behaviour yet.
func NotImplemented(feature string) *AppError {
	return &AppError{
		Code:      CodeNotImplemented,
		Message:   fmt.Sprintf("%s is not implemented", feature),
		MessageAR: fmt.Sprintf("%s غير متاح حالياً", feature),
	}
}

// NotFound reports a missing record in the caller's organisation.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:      CodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		MessageAR: fmt.Sprintf("%s غير موجود", entityAR(resource)),
	}
}

// Conflict reports a state conflict that is not a workflow transition.
func Conflict(en, ar string) *AppError {
	return &AppError{Code: CodeConflict, Message: en, MessageAR: ar}
}

// Forbidden reports a permission failure.
func Forbidden(en, ar string) *AppError {
	return &AppError{Code: CodeForbidden, Message: en, MessageAR: ar}
}

// Expired reports a link or token past its validity.
func Expired(en, ar string) *AppError {
	return &AppError{Code: CodeExpired, Message: en, MessageAR: ar}
}

var entityNamesAR = map[string]string{
	"alert":            "التنبيه",
	"kyc request":      "طلب اعرف عميلك",
	"screening result": "نتيجة الفحص",
	"str case":         "قضية البلاغ",
	"policy":           "السياسة",
	"risk assessment":  "تقييم المخاطر",
	"risk factor":      "عامل المخاطر",
	"customer":         "العميل",
	"monitoring rule":  "قاعدة المراقبة",
	"transaction":      "العملية",
	"notification":     "الإشعار",
	"organization":     "المنشأة",
}

func entityAR(entity string) string {
	if name, ok := entityNamesAR[strings.ToLower(entity)]; ok {
		return name
	}
	return entity
}
