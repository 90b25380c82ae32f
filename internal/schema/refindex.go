package schema

// ColumnKey — адрес колонки (таблица + колонка)
type ColumnKey struct {
	Table  string
	Column string
}

// ReferenceIndex — обратный индекс ссылок: дочерняя колонка -> родительская.
// По нему интерпретатор формы находит источники для связанных полей.
type ReferenceIndex map[ColumnKey]ColumnKey

// BuildReferenceIndex проверяет все объявленные ссылки и строит индекс.
// Висячая ссылка (таблица или колонка не существует) — ошибка схемы,
// индекс в этом случае не строится вовсе.
func BuildReferenceIndex(s *Schema) (ReferenceIndex, error) {
	idx := make(ReferenceIndex, len(s.Refs))
	for _, ref := range s.Refs {
		child := s.Table(ref.ChildTable)
		if child == nil {
			return nil, schemaErr(ref.ChildTable, ref.ChildColumn, "reference from unknown table")
		}
		if !child.HasColumn(ref.ChildColumn) {
			return nil, schemaErr(ref.ChildTable, ref.ChildColumn, "reference from unknown column")
		}
		parent := s.Table(ref.ParentTable)
		if parent == nil {
			return nil, schemaErr(ref.ChildTable, ref.ChildColumn, "reference to unknown table %q", ref.ParentTable)
		}
		if !parent.HasColumn(ref.ParentColumn) {
			return nil, schemaErr(ref.ChildTable, ref.ChildColumn, "reference to unknown column %s.%s", ref.ParentTable, ref.ParentColumn)
		}
		key := ColumnKey{Table: ref.ChildTable, Column: ref.ChildColumn}
		target := ColumnKey{Table: ref.ParentTable, Column: ref.ParentColumn}
		if prev, ok := idx[key]; ok && prev != target {
			return nil, schemaErr(ref.ChildTable, ref.ChildColumn, "conflicting references: %s.%s vs %s.%s",
				prev.Table, prev.Column, target.Table, target.Column)
		}
		idx[key] = target
	}
	return idx, nil
}

// Parent возвращает родительскую колонку для дочерней, если ссылка объявлена
func (idx ReferenceIndex) Parent(table, column string) (ColumnKey, bool) {
	target, ok := idx[ColumnKey{Table: table, Column: column}]
	return target, ok
}
