package form

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"collaboratorium/internal/store"
	"collaboratorium/internal/uiconfig"
)

// embeddedSchemaColumn — зарезервированная колонка справочной таблицы,
// в которой строка несёт json-схему своих вложенных полей
const embeddedSchemaColumn = "fields"

// Resolver интерпретирует записи по загруженному конфигу. Состояния
// между вызовами нет — один Resolver можно дёргать конкурентно для
// разных записей.
type Resolver struct {
	cfg  *uiconfig.Config
	st   store.Store
	tags CardinalityStrategy
}

type Option func(*Resolver)

// WithCardinality подменяет стратегию арности тегов
func WithCardinality(s CardinalityStrategy) Option {
	return func(r *Resolver) { r.tags = s }
}

func NewResolver(cfg *uiconfig.Config, st store.Store, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, st: st, tags: MultiEntry{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve разворачивает значения записи в дерево формы. Кривые
// subform/tag-данные внутри записи деградируют до пустой группы с
// записью в лог — одна битая запись не валит листинг целиком.
func (r *Resolver) Resolve(ctx context.Context, entity string, record map[string]any) (*Tree, error) {
	ent := r.cfg.Entity(entity)
	if ent == nil {
		return nil, fmt.Errorf("form: unknown entity %q", entity)
	}

	tree := &Tree{Entity: entity}
	for _, name := range ent.Fields.Order {
		spec := ent.Fields.Fields[name]
		field, err := r.resolveField(ctx, entity, name, spec, record[name])
		if err != nil {
			return nil, err
		}
		tree.Fields = append(tree.Fields, field)
	}
	return tree, nil
}

func (r *Resolver) resolveField(ctx context.Context, entity, name string, spec *uiconfig.FieldSpec, value any) (*Field, error) {
	field := &Field{Name: name, Spec: spec}

	switch spec.Kind {
	case uiconfig.KindPlain, uiconfig.KindSelect:
		field.Value = value
		return field, nil

	case uiconfig.KindStaticSubform:
		payload, err := decodeEmbedded(value)
		if err != nil {
			log.Printf("form: %s.%s: corrupt subform payload, rendering empty: %v", entity, name, err)
			payload = map[string]any{}
		}
		for _, gid := range spec.GroupOrder {
			set := spec.Groups[gid]
			sub, err := decodeEmbedded(payload[gid])
			if err != nil {
				log.Printf("form: %s.%s.%s: corrupt group payload, rendering empty: %v", entity, name, gid, err)
				sub = map[string]any{}
			}
			entry, rerr := r.resolveEntry(ctx, entity, name+"."+gid, set, sub)
			if rerr != nil {
				return nil, rerr
			}
			field.Groups = append(field.Groups, &Group{
				ID:      gid,
				Label:   gid,
				Entries: []*Entry{entry},
				Set:     set,
			})
		}
		return field, nil

	case uiconfig.KindDynamicSubform, uiconfig.KindTag:
		payload, err := decodeEmbedded(value)
		if err != nil {
			log.Printf("form: %s.%s: corrupt payload, rendering empty: %v", entity, name, err)
			payload = map[string]any{}
		}
		groups, err := r.resolveDynamic(ctx, entity, name, spec, payload)
		if err != nil {
			return nil, err
		}
		field.Groups = groups
		return field, nil

	default:
		field.Value = value
		return field, nil
	}
}

// resolveDynamic обходит строки справочной таблицы: каждая строка — одна
// группа со своей встроенной схемой полей
func (r *Resolver) resolveDynamic(ctx context.Context, entity, name string, spec *uiconfig.FieldSpec, payload map[string]any) ([]*Group, error) {
	rows, err := r.st.ListRows(ctx, spec.Source.Table)
	if err != nil {
		return nil, fmt.Errorf("form: %s.%s: lookup %s: %w", entity, name, spec.Source.Table, err)
	}

	var groups []*Group
	for _, row := range rows {
		key, _ := row.Values[spec.Source.ValueColumn].(string)
		if key == "" {
			log.Printf("form: %s.%s: lookup row %s has empty %s, skipped", entity, name, row.ID, spec.Source.ValueColumn)
			continue
		}
		label, _ := row.Values[spec.Source.LabelColumn].(string)
		if label == "" {
			label = key
		}

		set, err := r.embeddedSet(row.Values[embeddedSchemaColumn], entity+"."+name+"."+key)
		if err != nil {
			log.Printf("form: %s.%s.%s: corrupt embedded schema, rendering empty group: %v", entity, name, key, err)
			groups = append(groups, &Group{ID: key, Label: label, Dynamic: true})
			continue
		}

		group := &Group{ID: key, Label: label, Dynamic: true, Set: set}

		if spec.Kind == uiconfig.KindTag {
			for i, stored := range r.tags.Entries(payload[key]) {
				entry, err := r.resolveEntry(ctx, entity, fmt.Sprintf("%s.%s[%d]", name, key, i), set, stored)
				if err != nil {
					return nil, err
				}
				group.Entries = append(group.Entries, entry)
			}
		} else {
			sub, derr := decodeEmbedded(payload[key])
			if derr != nil {
				log.Printf("form: %s.%s.%s: corrupt group payload, rendering empty: %v", entity, name, key, derr)
				sub = map[string]any{}
			}
			entry, err := r.resolveEntry(ctx, entity, name+"."+key, set, sub)
			if err != nil {
				return nil, err
			}
			group.Entries = []*Entry{entry}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (r *Resolver) resolveEntry(ctx context.Context, entity, path string, set *uiconfig.FieldSet, values map[string]any) (*Entry, error) {
	entry := &Entry{}
	for _, name := range set.Order {
		field, err := r.resolveField(ctx, entity, path+"."+name, set.Fields[name], values[name])
		if err != nil {
			return nil, err
		}
		// имя поля в дереве — локальное, путь нужен только для диагностики
		field.Name = name
		entry.Fields = append(entry.Fields, field)
	}
	return entry, nil
}

// embeddedSet компилирует встроенную схему строки справочника.
// Ошибки здесь — ошибки данных, не конфига, поэтому наружу они не летят.
func (r *Resolver) embeddedSet(raw any, path string) (*uiconfig.FieldSet, error) {
	obj, err := decodeEmbedded(raw)
	if err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("empty embedded schema")
	}
	return uiconfig.CompileFieldSet(obj, path)
}

// decodeEmbedded приводит значение json-колонки к объекту: из хранилища
// оно может прийти уже маппингом, строкой или байтами
func decodeEmbedded(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case []byte:
		return unmarshalObject(v)
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
		return unmarshalObject([]byte(v))
	default:
		return nil, fmt.Errorf("expected object, got %T", value)
	}
}

func unmarshalObject(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return map[string]any{}, nil
	}
	return obj, nil
}
