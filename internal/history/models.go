// Package history содержит модели и логику работы с SQLite базой истории запусков.
package history

// RunStatus определяет статус запуска конвейера.
type RunStatus string

const (
	// StatusInProgress - запуск выполняется.
	StatusInProgress RunStatus = "in_progress"
	// StatusOK - запуск завершён.
	StatusOK RunStatus = "ok"
	// StatusInterrupted - запуск прерван (процесс завершился до FinishRun).
	StatusInterrupted RunStatus = "interrupted"
)

// Run представляет один запуск конвейера.
type Run struct {
	// ID - уникальный идентификатор запуска (UUID).
	ID string `db:"id"`

	// OutputDir - выходная директория запуска.
	OutputDir string `db:"output_dir"`

	// TargetFormat - целевой формат конвертации.
	TargetFormat string `db:"target_format"`

	// Retag - был ли включён повторный перенос тегов.
	Retag bool `db:"retag"`

	// Reconvert - было ли включено повторное перекодирование.
	Reconvert bool `db:"reconvert"`

	// Status - статус запуска.
	Status RunStatus `db:"status"`

	// Total - всего обработано файлов.
	Total int64 `db:"total"`

	// Converted - перекодировано файлов.
	Converted int64 `db:"converted"`

	// Skipped - пропущено файлов.
	Skipped int64 `db:"skipped"`

	// Tagged - размечено файлов.
	Tagged int64 `db:"tagged"`

	// Failed - файлов со сбоями.
	Failed int64 `db:"failed"`

	// StartedAt - время начала запуска (unix timestamp).
	StartedAt int64 `db:"started_at"`

	// FinishedAt - время завершения запуска (unix timestamp, nullable).
	FinishedAt *int64 `db:"finished_at"`
}

// FileRecord представляет итог обработки одного файла в запуске.
type FileRecord struct {
	// ID - уникальный идентификатор записи.
	ID int64 `db:"id"`

	// RunID - идентификатор запуска.
	RunID string `db:"run_id"`

	// SourceDir - исходная директория.
	SourceDir string `db:"source_dir"`

	// SourceFile - имя исходного файла.
	SourceFile string `db:"source_file"`

	// OutputFile - имя конвертированной копии.
	OutputFile string `db:"output_file"`

	// Converted - файл перекодирован в этом запуске.
	Converted bool `db:"converted"`

	// Skipped - копия уже существовала.
	Skipped bool `db:"skipped"`

	// Tagged - ключевые слова записаны в копию.
	Tagged bool `db:"tagged"`

	// FailKind - вид сбоя (пусто, если файл обработан чисто).
	FailKind *string `db:"fail_kind"`

	// Error - сообщение об ошибке (если есть).
	Error *string `db:"error"`
}

// TagCount - ключевое слово и число файлов, в которые оно записано.
type TagCount struct {
	// Tag - значение ключевого слова.
	Tag string

	// Files - количество файлов с этим словом.
	Files int64
}

// TagMatch - файл, найденный поиском по ключевому слову.
type TagMatch struct {
	// Tag - совпавшее ключевое слово.
	Tag string

	// OutputFile - имя конвертированной копии.
	OutputFile string

	// SourceDir - исходная директория файла.
	SourceDir string

	// SourceFile - имя исходного файла.
	SourceFile string

	// RunID - запуск, в котором слово было записано.
	RunID string
}

/*
Возможные расширения:
- Добавить длительность запуска отдельным полем
- Добавить размер конвертированной копии для статистики по месту
*/
