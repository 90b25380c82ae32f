package form

import "collaboratorium/internal/uiconfig"

// Tree — разрешённая форма одной записи: всё, что нужно рендереру,
// без обращений к конфигу или хранилищу.
type Tree struct {
	Entity string   `json:"entity"`
	Fields []*Field `json:"fields"`
}

// Field — одно поле формы. Для plain/select заполнен Value, для
// subform/tag — Groups.
type Field struct {
	Name   string             `json:"name"`
	Spec   *uiconfig.FieldSpec `json:"spec"`
	Value  any                `json:"value,omitempty"`
	Groups []*Group           `json:"groups,omitempty"`
}

// Group — одна группа subform/tag. Entries всегда последовательность:
// и статическая группа, и одиночный тег, и список тегов приходят к
// рендереру в одной форме, без разбора арности на месте.
type Group struct {
	ID      string             `json:"id"`
	Label   string             `json:"label"`
	Dynamic bool               `json:"dynamic"`
	Entries []*Entry           `json:"entries"`
	Set     *uiconfig.FieldSet `json:"-"` // набор полей, по которому разрешались записи
}

// Entry — один экземпляр группы
type Entry struct {
	Fields []*Field `json:"fields"`
}

func (t *Tree) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (g *Group) entry(i int) *Entry {
	if i < len(g.Entries) {
		return g.Entries[i]
	}
	return nil
}

func (e *Entry) Field(name string) *Field {
	if e == nil {
		return nil
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
