package main

import (
	"fmt"
	"log"

	"collaboratorium/internal/api"
	"collaboratorium/internal/config"
	"collaboratorium/internal/pg"
	"collaboratorium/internal/schema"
	"collaboratorium/internal/store"
	"collaboratorium/internal/uiconfig"
)

func main() {
	cfg := config.LoadWithPath("config.json")

	// 1. Схема предметной области
	sch, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки схемы: %v", err)
	}
	fmt.Printf("Загружено таблиц: %d\n", len(sch.Tables))

	index, err := schema.BuildReferenceIndex(sch)
	if err != nil {
		log.Fatalf("Ошибка индекса ссылок: %v", err)
	}

	// 2. Хранилище: Postgres при заданном URL, иначе in-memory
	var st store.Store
	if cfg.DBURL != "" {
		db, err := pg.Open(cfg.DBURL)
		if err != nil {
			log.Fatalf("Ошибка подключения к Postgres: %v", err)
		}
		if cfg.AutoInit {
			stmts, err := schema.GenerateDDL(sch)
			if err != nil {
				log.Fatalf("Ошибка генерации DDL: %v", err)
			}
			if err := pg.ApplyDDL(db, stmts); err != nil {
				log.Fatalf("Ошибка применения DDL: %v", err)
			}
			fmt.Printf("DDL применён: %d таблиц\n", len(stmts))
		}
		st = store.NewPG(db, sch)
		fmt.Println("Хранилище: Postgres")
	} else {
		st = store.NewMemory()
		fmt.Println("Хранилище: in-memory")
	}

	// 3. Конфиг интерфейса (черновики на этом этапе отклоняются)
	uiCfg, err := uiconfig.Load(cfg.ConfigPath, sch)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфига интерфейса: %v", err)
	}
	for _, issue := range uiCfg.Lint() {
		if issue.Blocking() {
			log.Fatalf("Конфиг не пригоден: %s", issue)
		}
		log.Printf("lint: %s", issue)
	}
	fmt.Printf("Загружено сущностей: %d\n", len(uiCfg.Entities))

	// 4. REST API
	srv := api.NewServer(sch, index, uiCfg, st, cfg.SchemaPath, cfg.ConfigPath)
	fmt.Printf("Стартуем сервер Collaboratorium на :%s...\n", cfg.Port)
	if err := srv.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Сервер остановлен: %v", err)
	}
}
