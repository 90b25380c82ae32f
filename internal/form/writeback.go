package form

import (
	"context"
	"fmt"

	"collaboratorium/internal/uiconfig"
)

// Serialize сворачивает отправленное дерево формы обратно в значения
// записи (включая встроенные json-объекты subform/tag-полей). Все
// нарушения собираются в один ValidationError, не только первое.
func (r *Resolver) Serialize(ctx context.Context, tree *Tree) (map[string]any, error) {
	ent := r.cfg.Entity(tree.Entity)
	if ent == nil {
		return nil, fmt.Errorf("form: unknown entity %q", tree.Entity)
	}

	out := make(map[string]any)
	var errs []FieldError
	for _, field := range tree.Fields {
		value, ferrs, err := r.serializeField(ctx, field, ent.Fields, field.Name)
		if err != nil {
			return nil, err
		}
		errs = append(errs, ferrs...)
		if value != nil {
			out[field.Name] = value
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return out, nil
}

func (r *Resolver) serializeField(ctx context.Context, field *Field, set *uiconfig.FieldSet, path string) (any, []FieldError, error) {
	spec := field.Spec

	switch spec.Kind {
	case uiconfig.KindPlain:
		if spec.Required && isEmpty(field.Value) {
			return nil, []FieldError{ferr(ErrRequired, path, "Field '"+path+"' is required")}, nil
		}
		return field.Value, nil, nil

	case uiconfig.KindSelect:
		if isEmpty(field.Value) {
			if spec.Required {
				return nil, []FieldError{ferr(ErrRequired, path, "Field '"+path+"' is required")}, nil
			}
			return field.Value, nil, nil
		}
		ferrs, err := r.checkSelect(ctx, spec, set, path, field.Value)
		return field.Value, ferrs, err

	case uiconfig.KindStaticSubform, uiconfig.KindDynamicSubform:
		payload := make(map[string]any)
		var errs []FieldError
		for _, g := range field.Groups {
			obj, ferrs, err := r.serializeEntry(ctx, g.entry(0), g.Set, path+"."+g.ID)
			if err != nil {
				return nil, nil, err
			}
			errs = append(errs, ferrs...)
			if obj != nil {
				payload[g.ID] = obj
			}
		}
		if len(payload) == 0 && len(errs) == 0 {
			return nil, nil, nil
		}
		return payload, errs, nil

	case uiconfig.KindTag:
		payload := make(map[string]any)
		var errs []FieldError
		for _, g := range field.Groups {
			var objs []map[string]any
			for i, entry := range g.Entries {
				obj, ferrs, err := r.serializeEntry(ctx, entry, g.Set, fmt.Sprintf("%s.%s[%d]", path, g.ID, i))
				if err != nil {
					return nil, nil, err
				}
				errs = append(errs, ferrs...)
				if obj != nil {
					objs = append(objs, obj)
				}
			}
			if stored := r.tags.Collapse(objs); stored != nil {
				payload[g.ID] = stored
			}
		}
		if len(payload) == 0 && len(errs) == 0 {
			return nil, nil, nil
		}
		return payload, errs, nil

	default:
		return field.Value, nil, nil
	}
}

// serializeEntry собирает один экземпляр группы. Полностью пустой
// экземпляр считается незаполненным: он опускается целиком и required
// внутри него не проверяется.
func (r *Resolver) serializeEntry(ctx context.Context, entry *Entry, set *uiconfig.FieldSet, path string) (map[string]any, []FieldError, error) {
	if entry == nil || set == nil {
		return nil, nil, nil
	}
	obj := make(map[string]any)
	var errs []FieldError
	for _, field := range entry.Fields {
		value, ferrs, err := r.serializeField(ctx, field, set, path+"."+field.Name)
		if err != nil {
			return nil, nil, err
		}
		errs = append(errs, ferrs...)
		if value != nil {
			obj[field.Name] = value
		}
	}
	if len(obj) == 0 {
		return nil, nil, nil
	}
	return obj, errs, nil
}

// checkSelect проверяет, что каждое значение — легальный ключ своего
// списка опций (встроенного или табличного)
func (r *Resolver) checkSelect(ctx context.Context, spec *uiconfig.FieldSpec, set *uiconfig.FieldSet, path string, value any) ([]FieldError, error) {
	legal, err := r.legalKeys(ctx, spec, set)
	if err != nil {
		return nil, fmt.Errorf("form: %s: %w", path, err)
	}

	var errs []FieldError
	check := func(v any) {
		s, ok := v.(string)
		if !ok {
			errs = append(errs, ferr(ErrTypeMismatch, path, fmt.Sprintf("Field '%s' expected string option key, got %T", path, v)))
			return
		}
		if !legal[s] {
			errs = append(errs, ferr(ErrEnumInvalid, path, fmt.Sprintf("Field '%s' has unknown option %q", path, s)))
		}
	}

	switch v := value.(type) {
	case []any:
		for _, item := range v {
			check(item)
		}
	case []string:
		for _, item := range v {
			check(item)
		}
	default:
		check(v)
	}
	return errs, nil
}

func (r *Resolver) legalKeys(ctx context.Context, spec *uiconfig.FieldSpec, set *uiconfig.FieldSet) (map[string]bool, error) {
	legal := make(map[string]bool)
	switch {
	case spec.ListName != "":
		for key := range set.Lists[spec.ListName] {
			legal[key] = true
		}
	case spec.Source != nil:
		rows, err := r.st.ListRows(ctx, spec.Source.Table)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", spec.Source.Table, err)
		}
		for _, row := range rows {
			if key, ok := row.Values[spec.Source.ValueColumn].(string); ok && key != "" {
				legal[key] = true
			}
		}
	}
	return legal, nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}
