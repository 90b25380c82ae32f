package uiconfig

// Kind — разобранный вид поля. Вычисляется один раз при компиляции
// конфига, чтобы интерпретатор не гадал по форме parameters на каждом
// запросе.
type Kind int

const (
	KindPlain Kind = iota
	KindSelect
	KindStaticSubform
	KindDynamicSubform
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindStaticSubform:
		return "static_subform"
	case KindDynamicSubform:
		return "dynamic_subform"
	case KindTag:
		return "tag"
	default:
		return "plain"
	}
}

// OptionSource — откуда брать варианты: таблица-справочник и её колонки
// значения и подписи
type OptionSource struct {
	Table       string
	ValueColumn string
	LabelColumn string
}

// FieldSpec — описание одного поля формы. Сырые yaml/json-поля плюс
// результат компиляции (Kind, Source, Groups).
type FieldSpec struct {
	Type       string         `yaml:"type" json:"type"`
	Label      string         `yaml:"label,omitempty" json:"label,omitempty"`
	Appearance string         `yaml:"appearance,omitempty" json:"appearance,omitempty"`
	Required   bool           `yaml:"required,omitempty" json:"required,omitempty"`
	ListName   string         `yaml:"list_name,omitempty" json:"list_name,omitempty"`
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	Kind       Kind                 `yaml:"-" json:"-"`
	Source     *OptionSource        `yaml:"-" json:"-"`
	Groups     map[string]*FieldSet `yaml:"-" json:"-"`
	GroupOrder []string             `yaml:"-" json:"-"`
}

// FieldSet — скомпилированный набор полей. В исходном документе спеки
// и списки опций лежат вперемешку в одном маппинге; здесь они разнесены.
type FieldSet struct {
	Fields map[string]*FieldSpec
	Order  []string // имена полей в стабильном порядке
	Lists  map[string]map[string]string
}

// MetaSpec — стратегия заполнения служебной колонки
type MetaSpec struct {
	Strategy string `yaml:"strategy" json:"strategy"`
	ReadOnly bool   `yaml:"readonly,omitempty" json:"readonly,omitempty"`
}

// Entity — описание формы одной таблицы
type Entity struct {
	Label  string
	Fields *FieldSet
	Meta   map[string]MetaSpec
}

// Config — весь UI-конфиг. Загружается один раз и дальше не меняется;
// интерпретатор получает его явно, без глобального состояния.
type Config struct {
	Draft    bool
	Entities map[string]*Entity
}

func (c *Config) Entity(name string) *Entity {
	if c == nil {
		return nil
	}
	return c.Entities[name]
}
