// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/phototagger/internal/history"
)

// openHistory открывает базу истории по пути из флага --db.
func openHistory(dbPath string) (*history.History, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("укажите путь к БД через --db")
	}

	hist, err := history.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть БД: %w", err)
	}
	return hist, nil
}

// newHistoryCmd создаёт команду history.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Показать историю запусков",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			limit, _ := cmd.Flags().GetInt("limit")

			hist, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			runs, err := hist.RecentRuns(limit)
			if err != nil {
				return fmt.Errorf("не удалось получить историю: %w", err)
			}

			if len(runs) == 0 {
				fmt.Println("История пуста.")
				return nil
			}

			fmt.Printf("📊 Последние запуски (%d):\n\n", len(runs))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tСТАТУС\tФОРМАТ\tВСЕГО\tКОНВ\tПРОП\tТЕГИ\tОШИБ\tНАЧАЛО")
			fmt.Fprintln(w, "--\t------\t------\t-----\t----\t----\t----\t----\t------")

			for _, r := range runs {
				started := time.Unix(r.StartedAt, 0).Format("2006-01-02 15:04")
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.Status, r.TargetFormat,
					r.Total, r.Converted, r.Skipped, r.Tagged, r.Failed, started)
			}
			w.Flush()

			return nil
		},
	}

	cmd.PersistentFlags().String("db", "", "Путь к SQLite базе истории запусков")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.Flags().Int("limit", 10, "Сколько запусков показать")

	cmd.AddCommand(newHistoryFailedCmd())
	cmd.AddCommand(newHistoryStatsCmd())

	return cmd
}

// newHistoryFailedCmd создаёт команду для списка сбойных файлов запуска.
func newHistoryFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failed [run-id]",
		Short: "Показать сбойные файлы запуска",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")

			hist, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			files, err := hist.FailedFiles(args[0])
			if err != nil {
				return fmt.Errorf("не удалось получить сбойные файлы: %w", err)
			}

			if len(files) == 0 {
				fmt.Println("Сбойных файлов в этом запуске нет.")
				return nil
			}

			fmt.Printf("❌ Сбойные файлы (%d):\n\n", len(files))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ФАЙЛ\tВИД СБОЯ\tОШИБКА")
			fmt.Fprintln(w, "----\t--------\t------")

			for _, f := range files {
				kind, msg := "-", "-"
				if f.FailKind != nil {
					kind = *f.FailKind
				}
				if f.Error != nil {
					msg = *f.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", filepath.Join(f.SourceDir, f.SourceFile), kind, msg)
			}
			w.Flush()

			return nil
		},
	}
}

// newHistoryStatsCmd создаёт команду сводной статистики.
func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Показать сводную статистику по базе истории",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")

			hist, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			runs, files, tagged, failed, err := hist.Stats()
			if err != nil {
				return fmt.Errorf("не удалось получить статистику: %w", err)
			}

			fmt.Printf("📊 Статистика базы истории:\n")
			fmt.Printf("   Запусков: %d\n", runs)
			fmt.Printf("   Файлов: %d\n", files)
			fmt.Printf("   С тегами: %d\n", tagged)
			fmt.Printf("   Ошибок: %d\n", failed)

			return nil
		},
	}
}

// newTagsCmd создаёт команду tags.
func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags [query]",
		Short: "Показать записанные ключевые слова",
		Long: `Показать ключевые слова, записанные в конвертированные копии.

Без аргумента выводит самые частые ключевые слова. С аргументом ищет
файлы, в копию которых записано слово с такой подстрокой (без учёта
регистра).

Примеры:
  phototagger tags --db ./processed/.phototagger/history.db
  phototagger tags moon --db ./processed/.phototagger/history.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, _ := cmd.Flags().GetString("db")
			limit, _ := cmd.Flags().GetInt("limit")

			hist, err := openHistory(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			if len(args) == 0 {
				return printTopTags(hist, limit)
			}
			return printTagMatches(hist, args[0], limit)
		},
	}

	cmd.Flags().String("db", "", "Путь к SQLite базе истории запусков")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int("limit", 20, "Сколько строк показать")

	return cmd
}

// printTopTags выводит самые частые ключевые слова.
func printTopTags(hist *history.History, limit int) error {
	tags, err := hist.TopTags(limit)
	if err != nil {
		return fmt.Errorf("не удалось получить теги: %w", err)
	}

	if len(tags) == 0 {
		fmt.Println("Записанных тегов нет.")
		return nil
	}

	fmt.Printf("🏷️  Частые ключевые слова (%d):\n\n", len(tags))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ТЕГ\tФАЙЛОВ")
	fmt.Fprintln(w, "---\t------")
	for _, t := range tags {
		fmt.Fprintf(w, "%s\t%d\n", t.Tag, t.Files)
	}
	w.Flush()

	return nil
}

// printTagMatches выводит файлы, в копии которых записано искомое слово.
func printTagMatches(hist *history.History, query string, limit int) error {
	matches, err := hist.SearchTag(query, limit)
	if err != nil {
		return fmt.Errorf("не удалось выполнить поиск: %w", err)
	}

	if len(matches) == 0 {
		fmt.Printf("Тегов с подстрокой '%s' нет.\n", query)
		return nil
	}

	fmt.Printf("🏷️  Найдено записей: %d\n\n", len(matches))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ТЕГ\tКОПИЯ\tИСТОЧНИК")
	fmt.Fprintln(w, "---\t-----\t--------")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Tag, m.OutputFile, filepath.Join(m.SourceDir, m.SourceFile))
	}
	w.Flush()

	return nil
}

/*
Возможные расширения:
- Добавить фильтр истории по статусу запуска
- Добавить вывод истории в JSON для скриптов
- Добавить поиск по нескольким словам сразу
*/
