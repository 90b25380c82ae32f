package schema

import (
	"fmt"
	"strings"
)

// соответствие типов разметки типам Postgres
var typeMap = map[string]string{
	"int":       "bigint",
	"integer":   "bigint",
	"bigint":    "bigint",
	"float":     "double precision",
	"double":    "double precision",
	"decimal":   "numeric(18,2)",
	"varchar":   "text",
	"char":      "text",
	"string":    "text",
	"text":      "text",
	"bool":      "boolean",
	"boolean":   "boolean",
	"date":      "date",
	"datetime":  "timestamptz",
	"timestamp": "timestamptz",
	"json":      "jsonb",
	"uuid":      "text",
}

// GenerateDDL выдаёт по одному CREATE TABLE IF NOT EXISTS на таблицу,
// в порядке объявления. Версионируемые таблицы (есть и id, и version)
// получают составной первичный ключ (id, version).
func GenerateDDL(s *Schema) ([]string, error) {
	stmts := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		stmt, err := tableDDL(t)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func tableDDL(t *Table) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", sqlIdent(t.Name))

	versioned := t.IsVersioned()
	for i, col := range t.Columns {
		pgType, err := mapType(t.Name, col)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    %s %s", sqlIdent(col.Name), pgType)
		if col.NotNull {
			b.WriteString(" NOT NULL")
		}
		// одиночный PK пишем только когда нет составного
		if col.PK && !versioned {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(t.Columns)-1 || versioned {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	if versioned {
		fmt.Fprintf(&b, "    PRIMARY KEY (%s, %s)\n", sqlIdent("id"), sqlIdent("version"))
	}
	b.WriteString(")")
	return b.String(), nil
}

func mapType(table string, col Column) (string, error) {
	base := col.Type
	if i := strings.Index(base, "("); i > 0 {
		base = base[:i]
	}
	pgType, ok := typeMap[base]
	if !ok {
		return "", &UnsupportedTypeError{Table: table, Column: col.Name, Type: col.Type}
	}
	return pgType, nil
}

// sqlIdent квотирует идентификатор: кавычки спасают и от зарезервированных
// слов, и от регистрозависимых имён
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
