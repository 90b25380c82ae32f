package schema

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	tableRe   = regexp.MustCompile(`(?i)^table\s+([A-Za-z_]\w*)\s*\{$`)
	columnRe  = regexp.MustCompile(`^([A-Za-z_]\w*)\s+([A-Za-z_]\w*(?:\(\d+(?:,\s*\d+)?\))?)\s*(?:\[(.*)\])?$`)
	refLineRe = regexp.MustCompile(`(?i)^ref(?:\s+\w+)?:\s*(\w+)\.(\w+)\s*([<>])\s*(\w+)\.(\w+)$`)
	// инлайновая ссылка в настройках колонки: ref: > projects.id
	refOptRe = regexp.MustCompile(`(?i)^ref:\s*>\s*(\w+)\.(\w+)$`)
)

// Load читает файл разметки и возвращает Schema
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse разбирает схему-разметку (DBML-подмножество): блоки Table { ... }
// и строки Ref: child.col > parent.col. Порядок таблиц сохраняется — он
// важен для стабильного DDL.
func Parse(r io.Reader) (*Schema, error) {
	s := &Schema{byName: make(map[string]*Table)}
	var current *Table

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		if line == "" {
			continue
		}

		// Table <Name> {
		if m := tableRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				return nil, schemaErr(current.Name, "", "unterminated table block (line %d)", lineNo)
			}
			name := m[1]
			if s.byName[name] != nil {
				return nil, schemaErr(name, "", "duplicate table")
			}
			current = &Table{Name: name}
			s.Tables = append(s.Tables, current)
			s.byName[name] = current
			continue
		}

		// конец блока
		if line == "}" {
			if current == nil {
				return nil, schemaErr("", "", "unexpected '}' (line %d)", lineNo)
			}
			current = nil
			continue
		}

		// Ref: child.col > parent.col  (или parent.col < child.col)
		if m := refLineRe.FindStringSubmatch(line); m != nil {
			ref := Reference{
				ChildTable: m[1], ChildColumn: m[2],
				ParentTable: m[4], ParentColumn: m[5],
			}
			if m[3] == "<" {
				// стрелка в другую сторону — ребёнок справа
				ref = Reference{
					ChildTable: m[4], ChildColumn: m[5],
					ParentTable: m[1], ParentColumn: m[2],
				}
			}
			s.Refs = append(s.Refs, ref)
			continue
		}

		if current == nil {
			// вне таблицы валидны только Ref-строки и блоки
			return nil, schemaErr("", "", "unexpected statement %q (line %d)", line, lineNo)
		}

		// колонка: <name> <type> [settings]
		m := columnRe.FindStringSubmatch(line)
		if m == nil {
			return nil, schemaErr(current.Name, "", "cannot parse column line %q (line %d)", line, lineNo)
		}
		name, typ, rawOpts := m[1], m[2], m[3]
		if current.HasColumn(name) {
			return nil, schemaErr(current.Name, name, "duplicate column")
		}

		col := Column{Name: name, Type: strings.ToLower(typ)}
		for _, opt := range splitSettings(rawOpts) {
			low := strings.ToLower(opt)
			switch {
			case low == "pk" || low == "primary key":
				col.PK = true
				col.NotNull = true
			case low == "not null":
				col.NotNull = true
			case low == "null":
				col.NotNull = false
			case low == "unique" || low == "increment" || strings.HasPrefix(low, "note:") || strings.HasPrefix(low, "default:"):
				// для хранения и индекса ссылок эти настройки не нужны
			default:
				if rm := refOptRe.FindStringSubmatch(opt); rm != nil {
					s.Refs = append(s.Refs, Reference{
						ChildTable: current.Name, ChildColumn: name,
						ParentTable: rm[1], ParentColumn: rm[2],
					})
					continue
				}
				return nil, schemaErr(current.Name, name, "unknown column setting %q", opt)
			}
		}
		current.Columns = append(current.Columns, col)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		return nil, schemaErr(current.Name, "", "unterminated table block at EOF")
	}
	if len(s.Tables) == 0 {
		return nil, schemaErr("", "", "no tables declared")
	}
	return s, nil
}

func stripComment(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.Index(line, "//"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line
}

// splitSettings делит "pk, not null, ref: > projects.id" по запятым верхнего уровня
func splitSettings(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
