// Package cli содержит CLI интерфейс приложения.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/phototagger/internal/config"
	"github.com/artemshloyda/phototagger/internal/history"
	"github.com/artemshloyda/phototagger/internal/pipeline"
	"github.com/artemshloyda/phototagger/internal/progress"
	"github.com/artemshloyda/phototagger/internal/runlock"
	"github.com/artemshloyda/phototagger/internal/scanner"
	"github.com/artemshloyda/phototagger/internal/watcher"
)

var (
	// Version будет установлена при сборке.
	Version = "dev"

	// BuildTime будет установлена при сборке.
	BuildTime = "unknown"
)

// cfg содержит глобальную конфигурацию.
var cfg = config.DefaultConfig()

// Параметры, задаваемые только флагами.
var (
	configFile string
	loadPreset string
	savePreset string
)

// NewRootCmd создаёт корневую команду CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phototagger",
		Short: "Утилита для конвертации фотоархива с переносом IPTC-тегов",
		Long: `PhotoTagger - CLI утилита для пакетной конвертации изображений
с переносом IPTC ключевых слов из оригиналов в копии.

Каждый исходный файл конвертируется в целевой формат, а его ключевые
слова переносятся в копию с меткой происхождения. Повторный запуск
идемпотентен: уже конвертированные файлы не трогаются.

Примеры:
  # Конвертировать два архива в JPEG с переносом тегов
  phototagger --src ./scans --src ./negatives --out ./processed

  # Архивный профиль: TIFF и повторный перенос тегов
  phototagger --src ./scans --out ./archive --preset archive

  # Перенести теги заново без повторной конвертации
  phototagger --src ./scans --out ./processed --retag

  # Следить за директориями и обрабатывать новые файлы
  phototagger --src ./incoming --out ./processed --watch`,
		RunE: runProcess,
	}

	// Флаги
	flags := rootCmd.Flags()

	// Входные параметры
	flags.StringSliceVar(&cfg.SourceDirs, "src", nil,
		"Директория с исходными изображениями (можно указывать несколько раз)")
	flags.StringVar(&cfg.OutputDir, "out", "", "Директория для конвертированных копий")

	// Параметры обработки
	format := flags.String("format", string(cfg.TargetFormat),
		"Целевой формат: "+strings.Join(config.ValidFormats(), ", "))
	flags.BoolVar(&cfg.Retag, "retag", cfg.Retag,
		"Перенести теги заново для уже конвертированных файлов")
	flags.BoolVar(&cfg.Reconvert, "reconvert", cfg.Reconvert,
		"Конвертировать заново даже при существующей копии")
	flags.StringVar(&cfg.Preset, "preset", "",
		"Профиль настроек: "+strings.Join(config.ValidPresets(), ", "))
	flags.BoolVar(&cfg.Watch, "watch", cfg.Watch,
		"Следить за исходными директориями и обрабатывать новые файлы")

	// Конфигурация и пресеты
	flags.StringVar(&configFile, "config", "", "Путь к файлу конфигурации YAML")
	flags.StringVar(&loadPreset, "load-preset", "", "Загрузить сохранённый пресет")
	flags.StringVar(&savePreset, "save-preset", "", "Сохранить текущие настройки как пресет и выйти")

	// Пути
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Путь к SQLite базе истории запусков")
	flags.BoolVar(&cfg.NoDB, "no-db", cfg.NoDB, "Не записывать историю запусков")

	// Вывод
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Подробный вывод")
	flags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Отключить прогресс-бар")

	// Наложение файла конфигурации, пресета и профиля.
	// Приоритет: флаги > профиль > сохранённый пресет > файл > значения по умолчанию.
	rootCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg.TargetFormat = config.ParseTargetFormat(*format)
		return resolveConfig(cmd)
	}

	// Подкоманды
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPresetsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newInspectCmd())

	return rootCmd
}

// resolveConfig накладывает файл конфигурации, сохранённый пресет и
// именованный профиль на значения флагов.
func resolveConfig(cmd *cobra.Command) error {
	// Файл конфигурации: явный --config или стандартные пути
	fc, path, err := config.FindAndLoadConfig(configFile)
	if err != nil {
		return err
	}
	if fc != nil {
		applyOverlay(cmd, fc)
		if cfg.Verbose {
			fmt.Printf("📄 Конфигурация: %s\n", path)
		}
	}

	// Сохранённый пресет накладывается поверх файла
	if loadPreset != "" {
		pc, presetPath, err := config.LoadPreset(loadPreset)
		if err != nil {
			return err
		}
		if pc == nil {
			return fmt.Errorf("пресет '%s' не найден", loadPreset)
		}
		applyOverlay(cmd, pc)
		if cfg.Verbose {
			fmt.Printf("📄 Пресет: %s\n", presetPath)
		}
	}

	// Именованный профиль сильнее файла, но слабее явных флагов
	if cfg.Preset != "" {
		p, ok := config.Presets[config.Preset(cfg.Preset)]
		if !ok {
			return fmt.Errorf("неизвестный профиль '%s' (доступны: %s)",
				cfg.Preset, strings.Join(config.ValidPresets(), ", "))
		}

		flags := cmd.Flags()
		if !flags.Changed("format") {
			cfg.TargetFormat = p.Format
		}
		if !flags.Changed("retag") {
			cfg.Retag = p.Retag
		}
		if !flags.Changed("reconvert") {
			cfg.Reconvert = p.Reconvert
		}
	}

	return nil
}

// applyOverlay переносит значения из файла конфигурации в cfg,
// не трогая поля, заданные флагами явно.
func applyOverlay(cmd *cobra.Command, fc *config.FileConfig) {
	base := config.DefaultConfig()
	fc.ApplyToConfig(base)

	flags := cmd.Flags()
	if !flags.Changed("src") && len(base.SourceDirs) > 0 {
		cfg.SourceDirs = base.SourceDirs
	}
	if !flags.Changed("out") && base.OutputDir != "" {
		cfg.OutputDir = base.OutputDir
	}
	if !flags.Changed("format") && base.TargetFormat != config.DefaultFormat {
		cfg.TargetFormat = base.TargetFormat
	}
	if !flags.Changed("retag") && base.Retag {
		cfg.Retag = true
	}
	if !flags.Changed("reconvert") && base.Reconvert {
		cfg.Reconvert = true
	}
	if !flags.Changed("preset") && base.Preset != "" {
		cfg.Preset = base.Preset
	}
	if !flags.Changed("watch") && base.Watch {
		cfg.Watch = true
	}
	if !flags.Changed("verbose") && base.Verbose {
		cfg.Verbose = true
	}
	if !flags.Changed("no-progress") && base.NoProgress {
		cfg.NoProgress = true
	}
	if !flags.Changed("db") && base.DBPath != "" {
		cfg.DBPath = base.DBPath
	}
}

// runProcess выполняет основную логику обработки.
func runProcess(cmd *cobra.Command, args []string) error {
	// Режим сохранения пресета: обработка не выполняется
	if savePreset != "" {
		path, err := config.SavePreset(savePreset, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Пресет '%s' сохранён: %s\n", savePreset, path)
		return nil
	}

	// Валидация конфигурации
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("ошибка конфигурации: %w", err)
	}

	// Создаём контекст с обработкой сигналов
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Обработка сигналов завершения
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️  Получен сигнал завершения, останавливаем...")
		cancel()
	}()

	// Один запуск на выходную директорию
	lock, err := runlock.Acquire(cfg.OutputDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	// Инициализируем историю запусков
	var hist *history.History
	if !cfg.NoDB {
		hist, err = history.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("не удалось инициализировать БД истории: %w", err)
		}
		defer func() { _ = hist.Close() }()

		// Помечаем запуски, прерванные до этого
		cleaned, err := hist.CleanupInProgress()
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Не удалось пометить прерванные запуски: %v\n", err)
		} else if cleaned > 0 {
			fmt.Printf("🧹 Помечено прерванных запусков: %d\n", cleaned)
		}
	}

	// Выводим параметры
	fmt.Printf("🚀 Запуск обработки:\n")
	fmt.Printf("   Источники: %s\n", strings.Join(cfg.SourceDirs, ", "))
	fmt.Printf("   Выход: %s\n", cfg.OutputDir)
	fmt.Printf("   Формат: %s\n", cfg.TargetFormat)
	if cfg.Preset != "" {
		fmt.Printf("   Профиль: %s\n", cfg.Preset)
	}
	if cfg.Retag {
		fmt.Printf("   Повторный перенос тегов: да\n")
	}
	if cfg.Reconvert {
		fmt.Printf("   Повторная конвертация: да\n")
	}
	fmt.Println()

	stats, err := runPass(ctx, hist)
	if err != nil {
		return err
	}

	if cfg.Watch {
		return runWatch(ctx, hist)
	}

	if stats.Failed > 0 {
		return fmt.Errorf("завершено с %d ошибками", stats.Failed)
	}

	return nil
}

// runPass выполняет один проход конвейера по всем исходным директориям.
func runPass(ctx context.Context, hist *history.History) (pipeline.Stats, error) {
	// Считаем файлы заранее для прогресс-бара
	total := countSourceFiles()

	var runID string
	if hist != nil {
		id, err := hist.BeginRun(cfg.OutputDir, string(cfg.TargetFormat), cfg.Retag, cfg.Reconvert)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Не удалось записать запуск в историю: %v\n", err)
		} else {
			runID = id
		}
	}

	bar := progress.New(progress.Options{
		Total:       int64(total),
		Description: "Обработка",
		Disabled:    cfg.NoProgress || total == 0,
	})

	p := pipeline.New(cfg)
	p.SetLogf(func(format string, args ...any) {
		bar.WriteMessage(format+"\n", args...)
	})

	interrupted := false
	for p.Next() {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		res := p.Result()
		bar.Increment()

		// Сбои конвейер уже вывел через logf
		if cfg.Verbose && res.Failure == nil {
			bar.WriteMessage("%s %s (%s)\n", resultMark(res),
				filepath.Join(res.SourceDir, res.SourceFile), res.Conversion.Filename)
		}

		if hist != nil && runID != "" {
			recordResult(hist, runID, res)
		}
	}

	bar.Finish()
	stats := p.Stats()

	if interrupted {
		// Запуск остаётся in_progress: следующий запуск пометит его прерванным
		return stats, fmt.Errorf("обработка прервана")
	}

	if hist != nil && runID != "" {
		err := hist.FinishRun(runID, stats.Total, stats.Converted, stats.Skipped, stats.Tagged, stats.Failed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Не удалось завершить запись истории: %v\n", err)
		}
	}

	// Выводим результаты
	fmt.Println()
	fmt.Printf("📊 Результаты:\n")
	fmt.Printf("   Всего: %d\n", stats.Total)
	fmt.Printf("   Конвертировано: %d\n", stats.Converted)
	fmt.Printf("   Пропущено: %d\n", stats.Skipped)
	fmt.Printf("   С тегами: %d\n", stats.Tagged)
	fmt.Printf("   Ошибок: %d\n", stats.Failed)
	if n := len(p.EnumerationFailures()); n > 0 {
		fmt.Printf("   ⚠️  Недоступных директорий: %d\n", n)
	}
	fmt.Printf("   Время: %s\n", bar.Duration().Round(time.Millisecond))

	return stats, nil
}

// runWatch держит процесс живым и запускает проход на каждую пачку изменений.
func runWatch(ctx context.Context, hist *history.History) error {
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}

	triggers, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("👀 Слежение за %d директориями, Ctrl+C для выхода\n", len(cfg.SourceDirs))

	for range triggers {
		fmt.Println()
		if _, err := runPass(ctx, hist); err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
		}
	}

	fmt.Println("✅ Слежение остановлено")
	return nil
}

// resultMark возвращает значок результата для подробного вывода.
func resultMark(res *pipeline.Result) string {
	switch {
	case res.Failure != nil:
		return "❌"
	case res.Skipped:
		return "⏭️"
	default:
		return "✅"
	}
}

// recordResult сохраняет результат одного файла в историю.
func recordResult(hist *history.History, runID string, res *pipeline.Result) {
	rec := history.FileRecord{
		RunID:      runID,
		SourceDir:  res.SourceDir,
		SourceFile: res.SourceFile,
		OutputFile: res.Conversion.Filename,
		Converted:  res.Converted,
		Skipped:    res.Skipped,
		Tagged:     res.Tagged,
	}

	if res.Failure != nil {
		kind := res.Failure.Kind.String()
		msg := res.Failure.Err.Error()
		rec.FailKind = &kind
		rec.Error = &msg
	}

	var tags []string
	if res.Tagged {
		tags = res.Metadata.Tags
	}

	if err := hist.RecordResult(runID, rec, tags); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Не удалось записать результат в историю: %v\n", err)
	}
}

// countSourceFiles считает файлы во всех исходных директориях для
// прогресс-бара. Ошибки перечисления игнорируются: конвейер сообщит
// о них при обработке.
func countSourceFiles() int {
	total := 0
	for _, dir := range cfg.SourceDirs {
		files, err := scanner.ListFiles(dir)
		if err != nil {
			continue
		}
		total += len(files)
	}
	return total
}

// newVersionCmd создаёт команду version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("phototagger %s (built %s)\n", Version, BuildTime)
		},
	}
}

// Execute запускает CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		// Не выводим ошибку, cobra уже вывела
		os.Exit(1)
	}
}

/*
Возможные расширения:
- Добавить команду retry для повторной обработки сбойных файлов запуска
- Добавить команду export для выгрузки истории в JSON
- Добавить флаг --limit для ограничения числа файлов за проход
*/
