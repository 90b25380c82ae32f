package form

import (
	"fmt"
	"strings"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок, которыми будем пользоваться
const (
	ErrRequired     = "required"
	ErrTypeMismatch = "type_mismatch"
	ErrEnumInvalid  = "enum_invalid"
	ErrNotFound     = "not_found"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// ValidationError собирает ВСЕ найденные проблемы отправленной формы,
// не останавливаясь на первой. Запись при этом не трогается —
// вызывающий возвращает форму пользователю на доработку.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		names[i] = fe.Field
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}
