// Package history содержит логику работы с SQLite базой истории запусков.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// History предоставляет методы для работы с базой истории запусков.
type History struct {
	db *sql.DB
}

// New создаёт новое подключение к SQLite и выполняет миграции.
func New(dbPath string) (*History, error) {
	// Создаём директорию для БД, если не существует
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для БД: %w", err)
	}

	// Открываем/создаём БД с параметрами для устойчивого доступа
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}

	// Проверяем подключение
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}

	// SQLite не поддерживает параллельную запись
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	h := &History{db: db}

	// Выполняем миграции
	if err := h.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("не удалось выполнить миграции: %w", err)
	}

	return h, nil
}

// migrate выполняет все SQL-миграции.
func (h *History) migrate() error {
	for i, m := range GetMigrations() {
		if _, err := h.db.Exec(m); err != nil {
			return fmt.Errorf("миграция %d: %w", i+1, err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (h *History) Close() error {
	return h.db.Close()
}

// BeginRun регистрирует новый запуск и возвращает его идентификатор.
func (h *History) BeginRun(outputDir, targetFormat string, retag, reconvert bool) (string, error) {
	runID := uuid.NewString()
	now := time.Now().Unix()

	_, err := h.db.Exec(
		`INSERT INTO runs (id, output_dir, target_format, retag, reconvert, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, outputDir, targetFormat, boolToInt(retag), boolToInt(reconvert), StatusInProgress, now,
	)
	if err != nil {
		return "", fmt.Errorf("не удалось зарегистрировать запуск: %w", err)
	}
	return runID, nil
}

// RecordResult сохраняет итог обработки одного файла вместе с записанными
// в копию ключевыми словами.
func (h *History) RecordResult(runID string, rec FileRecord, tags []string) error {
	res, err := h.db.Exec(
		`INSERT INTO files (run_id, source_dir, source_file, output_file, converted, skipped, tagged, fail_kind, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.SourceDir, rec.SourceFile, rec.OutputFile,
		boolToInt(rec.Converted), boolToInt(rec.Skipped), boolToInt(rec.Tagged),
		rec.FailKind, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("не удалось сохранить итог файла: %w", err)
	}

	if !rec.Tagged || len(tags) == 0 {
		return nil
	}

	fileID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("не удалось получить ID записи файла: %w", err)
	}
	for _, tag := range tags {
		if _, err := h.db.Exec("INSERT INTO tags (file_id, tag) VALUES (?, ?)", fileID, tag); err != nil {
			return fmt.Errorf("не удалось сохранить ключевое слово: %w", err)
		}
	}
	return nil
}

// FinishRun помечает запуск завершённым и сохраняет счётчики.
func (h *History) FinishRun(runID string, total, converted, skipped, tagged, failed int) error {
	now := time.Now().Unix()
	_, err := h.db.Exec(
		`UPDATE runs SET status = ?, total = ?, converted = ?, skipped = ?, tagged = ?, failed = ?, finished_at = ?
		 WHERE id = ?`,
		StatusOK, total, converted, skipped, tagged, failed, now, runID,
	)
	if err != nil {
		return fmt.Errorf("не удалось завершить запуск: %w", err)
	}
	return nil
}

// CleanupInProgress помечает незавершённые запуски прерванными.
// Вызывается при старте для очистки после аварийного завершения.
func (h *History) CleanupInProgress() (int64, error) {
	res, err := h.db.Exec(
		"UPDATE runs SET status = ? WHERE status = ?",
		StatusInterrupted, StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("не удалось очистить незавершённые запуски: %w", err)
	}
	return res.RowsAffected()
}

// RecentRuns возвращает последние запуски, новые первыми.
func (h *History) RecentRuns(limit int) ([]Run, error) {
	rows, err := h.db.Query(
		`SELECT id, output_dir, target_format, retag, reconvert, status,
		        total, converted, skipped, tagged, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать историю запусков: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var retag, reconvert int
		if err := rows.Scan(&r.ID, &r.OutputDir, &r.TargetFormat, &retag, &reconvert, &r.Status,
			&r.Total, &r.Converted, &r.Skipped, &r.Tagged, &r.Failed, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("не удалось разобрать запись запуска: %w", err)
		}
		r.Retag = retag != 0
		r.Reconvert = reconvert != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FailedFiles возвращает файлы запуска, обработанные со сбоем.
func (h *History) FailedFiles(runID string) ([]FileRecord, error) {
	rows, err := h.db.Query(
		`SELECT id, run_id, source_dir, source_file, output_file, converted, skipped, tagged, fail_kind, error
		 FROM files WHERE run_id = ? AND fail_kind IS NOT NULL ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать сбои запуска: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var converted, skipped, tagged int
		if err := rows.Scan(&f.ID, &f.RunID, &f.SourceDir, &f.SourceFile, &f.OutputFile,
			&converted, &skipped, &tagged, &f.FailKind, &f.Error); err != nil {
			return nil, fmt.Errorf("не удалось разобрать запись файла: %w", err)
		}
		f.Converted = converted != 0
		f.Skipped = skipped != 0
		f.Tagged = tagged != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

// TopTags возвращает самые частые ключевые слова по всем запускам.
func (h *History) TopTags(limit int) ([]TagCount, error) {
	rows, err := h.db.Query(
		"SELECT tag, COUNT(*) AS files FROM tags GROUP BY tag ORDER BY files DESC, tag LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать ключевые слова: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []TagCount
	for rows.Next() {
		var c TagCount
		if err := rows.Scan(&c.Tag, &c.Files); err != nil {
			return nil, fmt.Errorf("не удалось разобрать ключевое слово: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// SearchTag ищет файлы по подстроке ключевого слова (без учёта регистра).
func (h *History) SearchTag(query string, limit int) ([]TagMatch, error) {
	rows, err := h.db.Query(
		`SELECT t.tag, f.output_file, f.source_dir, f.source_file, f.run_id
		 FROM tags t JOIN files f ON f.id = t.file_id
		 WHERE t.tag LIKE ? ORDER BY f.id DESC LIMIT ?`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось выполнить поиск по словам: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []TagMatch
	for rows.Next() {
		var m TagMatch
		if err := rows.Scan(&m.Tag, &m.OutputFile, &m.SourceDir, &m.SourceFile, &m.RunID); err != nil {
			return nil, fmt.Errorf("не удалось разобрать результат поиска: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Stats возвращает сводные счётчики по всей истории.
func (h *History) Stats() (runs, files, tagged, failed int64, err error) {
	err = h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs)
	if err != nil {
		return
	}
	_ = h.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&files)
	_ = h.db.QueryRow("SELECT COUNT(*) FROM files WHERE tagged = 1").Scan(&tagged)
	_ = h.db.QueryRow("SELECT COUNT(*) FROM files WHERE fail_kind IS NOT NULL").Scan(&failed)
	return
}

// boolToInt переводит булево значение в 0/1 для SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

/*
Возможные расширения:
- Добавить метод для экспорта истории в JSON
- Добавить очистку записей старше заданного возраста
- Добавить транзакцию вокруг вставки файла и его ключевых слов
*/
