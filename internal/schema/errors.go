package schema

import "fmt"

// SchemaError — кривая или внутренне противоречивая разметка
// (дубль таблицы/колонки, висячая ссылка и т.п.). Фатально для прогона компилятора.
type SchemaError struct {
	Table  string
	Column string
	Msg    string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("schema: %s.%s: %s", e.Table, e.Column, e.Msg)
	case e.Table != "":
		return fmt.Sprintf("schema: %s: %s", e.Table, e.Msg)
	default:
		return "schema: " + e.Msg
	}
}

func schemaErr(table, column, format string, args ...any) *SchemaError {
	return &SchemaError{Table: table, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedTypeError — для объявленного типа нет маппинга в тип хранилища.
type UnsupportedTypeError struct {
	Table  string
	Column string
	Type   string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("schema: %s.%s: no storage mapping for type %q", e.Table, e.Column, e.Type)
}
