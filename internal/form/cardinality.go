package form

// CardinalityStrategy решает, как трактовать сохранённое значение одной
// тег-группы. Поведение нестабильное и наверняка будет меняться, поэтому
// оно вынесено за интерфейс: остальной интерпретатор знает только
// "значение -> последовательность объектов".
type CardinalityStrategy interface {
	// Entries разворачивает сохранённое значение группы в последовательность
	// объектов-записей. Одиночный объект и список из одного объекта должны
	// давать одинаковый результат.
	Entries(stored any) []map[string]any
	// Collapse сворачивает последовательность обратно в каноничную форму
	// хранения (обратная операция к Entries).
	Collapse(entries []map[string]any) any
}

// MultiEntry — текущая стратегия: ноль, один или много экземпляров на
// группу. Одиночный объект хранится как есть, несколько — списком.
type MultiEntry struct{}

func (MultiEntry) Entries(stored any) []map[string]any {
	switch v := stored.(type) {
	case nil:
		return nil
	case map[string]any:
		return []map[string]any{v}
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}

func (MultiEntry) Collapse(entries []map[string]any) any {
	switch len(entries) {
	case 0:
		return nil
	case 1:
		return entries[0]
	default:
		out := make([]any, len(entries))
		for i, e := range entries {
			out[i] = e
		}
		return out
	}
}

var _ CardinalityStrategy = MultiEntry{}
