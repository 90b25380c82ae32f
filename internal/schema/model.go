package schema

// Schema — разобранная схема-разметка: таблицы в порядке объявления
// плюс все рёбра ссылок (и инлайновые, и отдельные Ref-строки).
type Schema struct {
	Tables []*Table
	Refs   []Reference

	byName map[string]*Table
}

// Table описывает одну таблицу разметки
type Table struct {
	Name    string
	Columns []Column
}

// Column — колонка с семантическим типом (int, varchar, text, ...)
type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// Reference — ребро (child.col -> parent.col); внешний ключ держит ребёнок.
type Reference struct {
	ChildTable   string
	ChildColumn  string
	ParentTable  string
	ParentColumn string
}

// Table возвращает таблицу по имени (nil, если нет)
func (s *Schema) Table(name string) *Table {
	if s == nil || s.byName == nil {
		return nil
	}
	return s.byName[name]
}

func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// IsVersioned: есть и id, и version — значит составной ключ (id, version)
// и несколько исторических строк на один логический id.
func (t *Table) IsVersioned() bool {
	return t.HasColumn("id") && t.HasColumn("version")
}
