package uiconfig

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"collaboratorium/internal/schema"
)

type rawEntity struct {
	Label  string              `yaml:"label"`
	Fields map[string]any      `yaml:"fields"`
	Meta   map[string]MetaSpec `yaml:"meta"`
}

type rawConfig struct {
	Draft    bool                 `yaml:"draft"`
	Entities map[string]rawEntity `yaml:"entities"`
}

// ParseConfig разбирает yaml и компилирует все наборы полей.
// Черновой флаг сохраняется как есть — решение, пускать ли черновик
// в работу, принимает вызывающий.
func ParseConfig(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, configErr("", "cannot parse yaml: "+err.Error())
	}
	if len(raw.Entities) == 0 {
		return nil, configErr("", "no entities declared")
	}

	cfg := &Config{Draft: raw.Draft, Entities: make(map[string]*Entity, len(raw.Entities))}
	for name, re := range raw.Entities {
		fs, err := CompileFieldSet(re.Fields, name)
		if err != nil {
			return nil, err
		}
		cfg.Entities[name] = &Entity{Label: re.Label, Fields: fs, Meta: re.Meta}
	}
	return cfg, nil
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Load читает конфиг для обслуживания запросов: черновик отклоняется,
// все ссылки на схему проверяются сразу.
func Load(path string, s *schema.Schema) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if cfg.Draft {
		return nil, configErr("draft", "draft config must be reviewed before serving (clear the draft flag)")
	}
	if err := cfg.Check(s); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Check сверяет конфиг со схемой: сущности — это таблицы, поля верхнего
// уровня — их колонки, источники опций существуют.
func (c *Config) Check(s *schema.Schema) error {
	names := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ent := c.Entities[name]
		t := s.Table(name)
		if t == nil {
			return configErr(name, "entity has no matching table")
		}
		for _, field := range ent.Fields.Order {
			if !t.HasColumn(field) {
				return configErr(join(name, field), "field has no matching column")
			}
		}
		for col := range ent.Meta {
			if !t.HasColumn(col) {
				return configErr(join(name, col), "meta strategy targets unknown column")
			}
		}
		if err := checkSources(s, ent.Fields, name); err != nil {
			return err
		}
	}
	return nil
}

func checkSources(s *schema.Schema, fs *FieldSet, path string) error {
	for _, name := range fs.Order {
		spec := fs.Fields[name]
		p := join(path, name)
		if spec.Source != nil {
			t := s.Table(spec.Source.Table)
			if t == nil {
				return configErr(p, fmt.Sprintf("source_table %q does not exist", spec.Source.Table))
			}
			if !t.HasColumn(spec.Source.ValueColumn) {
				return configErr(p, fmt.Sprintf("value_column %q not in table %q", spec.Source.ValueColumn, spec.Source.Table))
			}
			if !t.HasColumn(spec.Source.LabelColumn) {
				return configErr(p, fmt.Sprintf("label_column %q not in table %q", spec.Source.LabelColumn, spec.Source.Table))
			}
		}
		for _, gid := range spec.GroupOrder {
			if err := checkSources(s, spec.Groups[gid], join(p, gid)); err != nil {
				return err
			}
		}
	}
	return nil
}
