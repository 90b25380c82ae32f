package uiconfig

import (
	"sort"
	"strings"

	"collaboratorium/internal/schema"
)

// widgetFor — какой виджет предложить для семантического типа колонки
var widgetFor = map[string]FieldSpec{
	"int":       {Type: "integer"},
	"integer":   {Type: "integer"},
	"bigint":    {Type: "integer"},
	"serial":    {Type: "integer"},
	"float":     {Type: "decimal"},
	"decimal":   {Type: "decimal"},
	"double":    {Type: "decimal"},
	"text":      {Type: "text", Appearance: "multiline"},
	"string":    {Type: "string"},
	"varchar":   {Type: "string"},
	"char":      {Type: "string"},
	"bool":      {Type: "boolean"},
	"boolean":   {Type: "boolean"},
	"timestamp": {Type: "datetime"},
	"datetime":  {Type: "datetime"},
	"date":      {Type: "date"},
	"json":      {Type: "text", Appearance: "multiline"},
	"uuid":      {Type: "string", Appearance: "uuid"},
}

// служебные колонки не попадают в поля формы — ими управляют meta-стратегии
func isMetaColumn(name string) bool {
	switch name {
	case "id", "version", "timestamp", "created_by", "updated_at":
		return true
	}
	return false
}

// DraftConfig строит черновик UI-конфига из схемы и индекса ссылок.
// Черновик заведомо неполный: subform/tag-структура и связи, не
// выраженные внешними ключами, остаются на ручную доводку, поэтому
// результат помечен draft и не годится для обслуживания как есть.
func DraftConfig(s *schema.Schema, idx schema.ReferenceIndex) *Config {
	cfg := &Config{Draft: true, Entities: make(map[string]*Entity, len(s.Tables))}

	links := discoverLinkTables(s, idx)

	for _, t := range s.Tables {
		fs := &FieldSet{
			Fields: make(map[string]*FieldSpec),
			Lists:  make(map[string]map[string]string),
		}
		for _, col := range t.Columns {
			if isMetaColumn(col.Name) {
				continue
			}
			fs.Fields[col.Name] = draftField(s, idx, t, col)
			fs.Order = append(fs.Order, col.Name)
		}

		// many-to-many через link-таблицы: select_multiple на обе стороны
		for _, lf := range linkFieldsFor(s, links, t.Name) {
			if _, dup := fs.Fields[lf.name]; dup {
				continue
			}
			fs.Fields[lf.name] = lf.spec
			fs.Order = append(fs.Order, lf.name)
		}

		cfg.Entities[t.Name] = &Entity{
			Label:  titleCase(t.Name),
			Fields: fs,
			Meta:   draftMeta(t),
		}
	}
	return cfg
}

func draftField(s *schema.Schema, idx schema.ReferenceIndex, t *schema.Table, col schema.Column) *FieldSpec {
	if parent, ok := idx.Parent(t.Name, col.Name); ok {
		parentTable := s.Table(parent.Table)
		return &FieldSpec{
			Type:       "select_one",
			Appearance: "dropdown",
			Label:      titleCase(col.Name),
			Kind:       KindSelect,
			Required:   col.NotNull,
			Parameters: map[string]any{
				paramSourceTable: parent.Table,
				paramValueColumn: parent.Column,
				paramLabelColumn: guessLabelColumn(parentTable),
			},
			Source: &OptionSource{
				Table:       parent.Table,
				ValueColumn: parent.Column,
				LabelColumn: guessLabelColumn(parentTable),
			},
		}
	}

	base, ok := widgetFor[baseType(col.Type)]
	if !ok {
		base = FieldSpec{Type: "string"}
	}
	spec := base // копия
	spec.Label = titleCase(col.Name)
	spec.Required = col.NotNull
	spec.Kind = KindPlain
	return &spec
}

func draftMeta(t *schema.Table) map[string]MetaSpec {
	meta := make(map[string]MetaSpec)
	for _, col := range t.Columns {
		switch strings.ToLower(col.Name) {
		case "id":
			meta[col.Name] = MetaSpec{Strategy: "uuid", ReadOnly: true}
		case "version":
			meta[col.Name] = MetaSpec{Strategy: "increment"}
		case "timestamp", "updated_at", "created_at":
			meta[col.Name] = MetaSpec{Strategy: "now"}
		case "created_by", "user_id":
			meta[col.Name] = MetaSpec{Strategy: "current_user"}
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// guessLabelColumn выбирает колонку для подписи: name/title/label,
// иначе первая не-id
func guessLabelColumn(t *schema.Table) string {
	if t == nil {
		return "name"
	}
	for _, preferred := range []string{"name", "title", "label"} {
		for _, c := range t.Columns {
			if strings.EqualFold(c.Name, preferred) {
				return c.Name
			}
		}
	}
	for _, c := range t.Columns {
		if !strings.EqualFold(c.Name, "id") {
			return c.Name
		}
	}
	return "id"
}

// linkEdge — одна сторона link-таблицы
type linkEdge struct {
	LinkColumn   string
	TargetTable  string
	TargetColumn string
}

// discoverLinkTables находит many-to-many таблицы: имя содержит "link"
// и минимум два ребра в индексе ссылок
func discoverLinkTables(s *schema.Schema, idx schema.ReferenceIndex) map[string][]linkEdge {
	out := make(map[string][]linkEdge)
	for _, t := range s.Tables {
		if !strings.Contains(strings.ToLower(t.Name), "link") {
			continue
		}
		var edges []linkEdge
		for _, col := range t.Columns {
			if parent, ok := idx.Parent(t.Name, col.Name); ok {
				edges = append(edges, linkEdge{
					LinkColumn:   col.Name,
					TargetTable:  parent.Table,
					TargetColumn: parent.Column,
				})
			}
		}
		if len(edges) >= 2 {
			out[t.Name] = edges
		}
	}
	return out
}

type namedField struct {
	name string
	spec *FieldSpec
}

func linkFieldsFor(s *schema.Schema, links map[string][]linkEdge, table string) []namedField {
	var out []namedField

	linkNames := make([]string, 0, len(links))
	for name := range links {
		linkNames = append(linkNames, name)
	}
	sort.Strings(linkNames)

	for _, linkName := range linkNames {
		edges := links[linkName]
		var mine, others []linkEdge
		for _, e := range edges {
			if e.TargetTable == table {
				mine = append(mine, e)
			} else {
				others = append(others, e)
			}
		}
		switch {
		case len(mine) > 0 && len(others) > 0:
			for _, other := range others {
				target := s.Table(other.TargetTable)
				out = append(out, namedField{
					name: other.TargetTable + "_links",
					spec: selectMultipleDraft(other.TargetTable, other.TargetColumn, guessLabelColumn(target)),
				})
			}
		case len(mine) >= 2:
			// self-referential link (например initiative <-> initiative)
			out = append(out,
				namedField{
					name: selfLinkRole(mine[0].LinkColumn, "parents"),
					spec: selectMultipleDraft(table, mine[1].TargetColumn, guessLabelColumn(s.Table(table))),
				},
				namedField{
					name: selfLinkRole(mine[1].LinkColumn, "children"),
					spec: selectMultipleDraft(table, mine[0].TargetColumn, guessLabelColumn(s.Table(table))),
				},
			)
		}
	}
	return out
}

func selectMultipleDraft(table, valueCol, labelCol string) *FieldSpec {
	return &FieldSpec{
		Type:       "select_multiple",
		Appearance: "dropdown",
		Label:      "Linked " + titleCase(table),
		Kind:       KindSelect,
		Parameters: map[string]any{
			paramSourceTable: table,
			paramValueColumn: valueCol,
			paramLabelColumn: labelCol,
		},
		Source: &OptionSource{Table: table, ValueColumn: valueCol, LabelColumn: labelCol},
	}
}

func selfLinkRole(column, fallback string) string {
	low := strings.ToLower(column)
	switch {
	case strings.Contains(low, "parent"):
		return "parents"
	case strings.Contains(low, "child"):
		return "children"
	case strings.Contains(low, "from"):
		return "from"
	case strings.Contains(low, "to"):
		return "to"
	}
	return fallback
}

func baseType(typ string) string {
	if i := strings.Index(typ, "("); i > 0 {
		return typ[:i]
	}
	return typ
}

func titleCase(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
