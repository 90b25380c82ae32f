package uiconfig

// ConfigError — конфиг ссылается на несуществующую сущность/поле либо
// форма параметров неоднозначна. Ловится при загрузке, не при первом запросе.
type ConfigError struct {
	Path string // entity.field.group...
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "config: " + e.Msg
	}
	return "config: " + e.Path + ": " + e.Msg
}

func configErr(path, msg string) *ConfigError {
	return &ConfigError{Path: path, Msg: msg}
}
