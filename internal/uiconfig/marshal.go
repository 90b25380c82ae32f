package uiconfig

import "encoding/json"

// asDocument разворачивает скомпилированный набор обратно в исходную
// форму документа: спеки и списки опций в одном маппинге. Статические
// группы и источники опций возвращаются в parameters.
func (fs *FieldSet) asDocument() map[string]any {
	out := make(map[string]any, len(fs.Fields)+len(fs.Lists))
	for name, spec := range fs.Fields {
		out[name] = spec.asDocument()
	}
	for name, list := range fs.Lists {
		m := make(map[string]any, len(list))
		for k, v := range list {
			m[k] = v
		}
		out[name] = m
	}
	return out
}

func (spec *FieldSpec) asDocument() map[string]any {
	doc := map[string]any{"type": spec.Type}
	if spec.Label != "" {
		doc["label"] = spec.Label
	}
	if spec.Appearance != "" {
		doc["appearance"] = spec.Appearance
	}
	if spec.Required {
		doc["required"] = true
	}
	if spec.ListName != "" {
		doc["list_name"] = spec.ListName
	}
	switch {
	case len(spec.Groups) > 0:
		params := make(map[string]any, len(spec.Groups))
		for gid, g := range spec.Groups {
			params[gid] = g.asDocument()
		}
		doc["parameters"] = params
	case spec.Source != nil:
		doc["parameters"] = map[string]any{
			paramSourceTable: spec.Source.Table,
			paramValueColumn: spec.Source.ValueColumn,
			paramLabelColumn: spec.Source.LabelColumn,
		}
	case len(spec.Parameters) > 0:
		doc["parameters"] = spec.Parameters
	}
	return doc
}

func (e *Entity) asDocument() map[string]any {
	doc := map[string]any{"fields": e.Fields.asDocument()}
	if e.Label != "" {
		doc["label"] = e.Label
	}
	if len(e.Meta) > 0 {
		meta := make(map[string]any, len(e.Meta))
		for col, m := range e.Meta {
			entry := map[string]any{"strategy": m.Strategy}
			if m.ReadOnly {
				entry["readonly"] = true
			}
			meta[col] = entry
		}
		doc["meta"] = meta
	}
	return doc
}

func (c *Config) asDocument() map[string]any {
	entities := make(map[string]any, len(c.Entities))
	for name, e := range c.Entities {
		entities[name] = e.asDocument()
	}
	doc := map[string]any{"entities": entities}
	if c.Draft {
		doc["draft"] = true
	}
	return doc
}

func (c *Config) MarshalYAML() (any, error) { return c.asDocument(), nil }

func (c *Config) MarshalJSON() ([]byte, error) { return json.Marshal(c.asDocument()) }
