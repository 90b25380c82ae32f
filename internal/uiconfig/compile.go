package uiconfig

import (
	"fmt"
	"log"
	"sort"
)

// зарезервированные ключи parameters: ровно этот набор делает
// subform/tag динамическим
const (
	paramSourceTable = "source_table"
	paramValueColumn = "value_column"
	paramLabelColumn = "label_column"
)

func isReservedParam(key string) bool {
	return key == paramSourceTable || key == paramValueColumn || key == paramLabelColumn
}

// isDynamicShape: ключи parameters совпадают с зарезервированной тройкой
// точно — ни больше, ни меньше. Любая другая форма трактуется как
// статическая, даже при частичном совпадении имён.
func isDynamicShape(params map[string]any) bool {
	if len(params) != 3 {
		return false
	}
	for k := range params {
		if !isReservedParam(k) {
			return false
		}
	}
	return true
}

// CompileFieldSet превращает сырой маппинг (из yaml-конфига или из
// встроенной json-схемы строки справочника) в разобранный набор полей.
// Записи с ключом type — спеки полей; маппинги строка->строка — списки
// опций для list_name.
func CompileFieldSet(raw map[string]any, path string) (*FieldSet, error) {
	fs := &FieldSet{
		Fields: make(map[string]*FieldSpec),
		Lists:  make(map[string]map[string]string),
	}

	// yaml/json-маппинги в Go неупорядочены — сортируем для стабильного вывода
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry, ok := raw[name].(map[string]any)
		if !ok {
			return nil, configErr(join(path, name), "entry must be a mapping")
		}
		if _, hasType := entry["type"]; hasType {
			spec, err := compileSpec(entry, join(path, name))
			if err != nil {
				return nil, err
			}
			fs.Fields[name] = spec
			fs.Order = append(fs.Order, name)
			continue
		}
		// список опций: ключ -> подпись
		list, err := asOptionList(entry)
		if err != nil {
			return nil, configErr(join(path, name), err.Error())
		}
		fs.Lists[name] = list
	}

	// каждый list_name должен иметь соседний список под тем же именем
	for _, name := range fs.Order {
		spec := fs.Fields[name]
		if spec.ListName == "" {
			continue
		}
		if _, ok := fs.Lists[spec.ListName]; !ok {
			return nil, configErr(join(path, name), fmt.Sprintf("list_name %q has no sibling option list", spec.ListName))
		}
	}
	return fs, nil
}

func compileSpec(entry map[string]any, path string) (*FieldSpec, error) {
	spec := &FieldSpec{}
	spec.Type, _ = entry["type"].(string)
	spec.Label, _ = entry["label"].(string)
	spec.Appearance, _ = entry["appearance"].(string)
	spec.Required, _ = entry["required"].(bool)
	spec.ListName, _ = entry["list_name"].(string)
	if p, ok := entry["parameters"].(map[string]any); ok {
		spec.Parameters = p
	}

	switch spec.Type {
	case "subform", "tag":
		return compileSubform(spec, path)
	case "select_one", "select_multiple":
		return compileSelect(spec, path)
	case "":
		return nil, configErr(path, "field has empty type")
	default:
		spec.Kind = KindPlain
		return spec, nil
	}
}

func compileSubform(spec *FieldSpec, path string) (*FieldSpec, error) {
	if len(spec.Parameters) == 0 {
		return nil, configErr(path, spec.Type+" requires parameters")
	}

	if isDynamicShape(spec.Parameters) {
		src, err := asOptionSource(spec.Parameters)
		if err != nil {
			return nil, configErr(path, err.Error())
		}
		spec.Source = src
		if spec.Type == "tag" {
			spec.Kind = KindTag
		} else {
			spec.Kind = KindDynamicSubform
		}
		return spec, nil
	}

	// статический subform: каждый параметр — id группы с вложенным набором полей
	spec.Kind = KindStaticSubform
	spec.Groups = make(map[string]*FieldSet, len(spec.Parameters))

	gids := make([]string, 0, len(spec.Parameters))
	for gid := range spec.Parameters {
		gids = append(gids, gid)
	}
	sort.Strings(gids)

	for _, gid := range gids {
		if isReservedParam(gid) {
			// частичное совпадение с зарезервированной тройкой: форма всё
			// равно статическая, но почти наверняка это опечатка в конфиге
			log.Printf("config warning: %s: static group id %q collides with a reserved dynamic key", path, gid)
		}
		nested, ok := spec.Parameters[gid].(map[string]any)
		if !ok {
			return nil, configErr(join(path, gid), "static group must be a mapping of field specs")
		}
		g, err := CompileFieldSet(nested, join(path, gid))
		if err != nil {
			return nil, err
		}
		spec.Groups[gid] = g
		spec.GroupOrder = append(spec.GroupOrder, gid)
	}
	return spec, nil
}

func compileSelect(spec *FieldSpec, path string) (*FieldSpec, error) {
	spec.Kind = KindSelect
	switch {
	case len(spec.Parameters) > 0:
		if !isDynamicShape(spec.Parameters) {
			return nil, configErr(path, "select parameters must be exactly source_table/value_column/label_column")
		}
		src, err := asOptionSource(spec.Parameters)
		if err != nil {
			return nil, configErr(path, err.Error())
		}
		spec.Source = src
	case spec.ListName != "":
		// список проверяется после компиляции всего набора
	default:
		return nil, configErr(path, spec.Type+" needs either parameters or list_name")
	}
	return spec, nil
}

func asOptionSource(params map[string]any) (*OptionSource, error) {
	src := &OptionSource{}
	for key, dst := range map[string]*string{
		paramSourceTable: &src.Table,
		paramValueColumn: &src.ValueColumn,
		paramLabelColumn: &src.LabelColumn,
	} {
		s, ok := params[key].(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%s must be a non-empty string", key)
		}
		*dst = s
	}
	return src, nil
}

func asOptionList(entry map[string]any) (map[string]string, error) {
	list := make(map[string]string, len(entry))
	for k, v := range entry {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("option %q label must be a string", k)
		}
		list[k] = s
	}
	return list, nil
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
