// Package history содержит миграции SQLite базы истории запусков.
package history

// migrations содержит SQL-миграции в порядке выполнения.
var migrations = []string{
	// Миграция 1: Таблица запусков
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		output_dir TEXT NOT NULL,
		target_format TEXT NOT NULL,
		retag INTEGER NOT NULL DEFAULT 0,
		reconvert INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		converted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		tagged INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);`,

	// Миграция 2: Таблица обработанных файлов
	`CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		source_dir TEXT NOT NULL,
		source_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		converted INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		tagged INTEGER NOT NULL DEFAULT 0,
		fail_kind TEXT,
		error TEXT
	);`,

	// Миграция 3: Таблица ключевых слов, записанных в копии
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id INTEGER NOT NULL REFERENCES files(id),
		tag TEXT NOT NULL
	);`,

	// Миграция 4: Индексы для выборок по запуску и поиска по словам
	`CREATE INDEX IF NOT EXISTS ix_files_run ON files (run_id);`,
	`CREATE INDEX IF NOT EXISTS ix_tags_tag ON tags (tag);`,
	`CREATE INDEX IF NOT EXISTS ix_tags_file ON tags (file_id);`,

	// Миграция 5: Индекс для быстрого поиска по статусу запуска
	`CREATE INDEX IF NOT EXISTS ix_runs_status ON runs (status);`,

	// Миграция 6: Таблица метаданных для версионирования схемы
	`CREATE TABLE IF NOT EXISTS schema_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	// Миграция 7: Запись версии схемы
	`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', '1');`,
}

// GetMigrations возвращает список SQL-миграций.
func GetMigrations() []string {
	return migrations
}

/*
Возможные расширения:
- Добавить таблицу исходных директорий запуска (сейчас хранится только выходная)
- Добавить поддержку отката миграций (down migrations)
*/
