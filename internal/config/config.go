package config

import (
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port       string `json:"port"`
	SchemaPath string `json:"schemaPath"` // файл разметки схемы (dbml-подмножество)
	ConfigPath string `json:"configPath"` // yaml-конфиг интерфейса
	DBURL      string `json:"dbUrl"`      // пусто = хранилище в памяти
	AutoInit   bool   `json:"autoInit"`   // применять DDL при старте
}

func def() Config {
	return Config{
		Port:       "8080",
		SchemaPath: "schema.dbml",
		ConfigPath: "config.yaml",
		DBURL:      "",
		AutoInit:   false,
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

// LoadWithPath читает JSON по указанному пути, потом применяет ENV и флаги.
func LoadWithPath(jsonPath string) Config {
	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		if c2, err := loadJSON(jsonPath); err == nil {
			cfg = c2
		}
	}

	// ENV overrides
	cfg.Port = getenv("COLLAB_PORT", cfg.Port)
	cfg.SchemaPath = getenv("COLLAB_SCHEMA", cfg.SchemaPath)
	cfg.ConfigPath = getenv("COLLAB_UI_CONFIG", cfg.ConfigPath)
	cfg.DBURL = getenv("COLLAB_DB_URL", cfg.DBURL)
	cfg.AutoInit = getenvBool("COLLAB_AUTO_INIT", cfg.AutoInit)

	// Flags overrides
	configPath := flag.String("config", jsonPath, "Path to config JSON")
	port := flag.String("port", cfg.Port, "HTTP port")
	schemaPath := flag.String("schema", cfg.SchemaPath, "Path to schema markup file")
	uiPath := flag.String("ui-config", cfg.ConfigPath, "Path to interface config YAML")
	db := flag.String("db", cfg.DBURL, "Postgres URL (empty = in-memory)")
	auto := flag.String("auto-init", strconv.FormatBool(cfg.AutoInit), "Apply DDL at startup (true/false)")

	flag.Parse()

	// Если через флаг передали другой конфиг — перечитаем
	if *configPath != jsonPath {
		return LoadWithPath(*configPath)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.SchemaPath = strings.TrimSpace(*schemaPath)
	cfg.ConfigPath = strings.TrimSpace(*uiPath)
	cfg.DBURL = strings.TrimSpace(*db)
	cfg.AutoInit = strings.EqualFold(strings.TrimSpace(*auto), "true") ||
		strings.EqualFold(strings.TrimSpace(*auto), "1") ||
		strings.EqualFold(strings.TrimSpace(*auto), "yes")

	return cfg
}
