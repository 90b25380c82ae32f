package uiconfig

import (
	"fmt"
	"sort"
)

type Issue struct {
	Entity  string `json:"entity"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s.%s: %s (%s)", i.Entity, i.Field, i.Message, i.Code)
}

// Blocking отделяет замечания, с которыми конфиг нельзя пускать в
// работу: сейчас это только reserved_group_id — почти наверняка
// сломанная динамическая форма. Косметика (подписи) не блокирует.
func (i Issue) Blocking() bool {
	return i.Code == "reserved_group_id"
}

// Lint собирает некритичные замечания к конфигу. Ошибки связности
// (несуществующие таблицы/колонки) ловит Check; тут — то, что формально
// валидно, но почти наверняка не то, что хотел автор.
func (c *Config) Lint() []Issue {
	var issues []Issue

	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		issues = append(issues, lintFieldSet(name, "", c.Entities[name].Fields)...)
	}
	return issues
}

func lintFieldSet(entity, prefix string, fs *FieldSet) []Issue {
	var issues []Issue
	for _, name := range fs.Order {
		spec := fs.Fields[name]
		field := join(prefix, name)

		if spec.Label == "" {
			issues = append(issues, Issue{
				Entity: entity, Field: field,
				Code:    "label_missing",
				Message: "field has no label; the raw column name will be shown",
			})
		}

		if spec.Kind == KindStaticSubform {
			for _, gid := range spec.GroupOrder {
				if isReservedParam(gid) {
					issues = append(issues, Issue{
						Entity: entity, Field: field,
						Code: "reserved_group_id",
						Message: fmt.Sprintf(
							"static group id %q collides with a reserved dynamic key; likely a broken dynamic subform", gid),
					})
				}
				issues = append(issues, lintFieldSet(entity, join(field, gid), spec.Groups[gid])...)
			}
		}

		if spec.Source != nil && spec.Source.ValueColumn == spec.Source.LabelColumn {
			issues = append(issues, Issue{
				Entity: entity, Field: field,
				Code:    "label_equals_value",
				Message: "label_column equals value_column; options will show raw keys",
			})
		}
	}
	return issues
}
