// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/phototagger/internal/config"
)

// newPresetsCmd создаёт команду для управления пресетами.
func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Профили и сохранённые пресеты конфигурации",
		Long: `Профили и сохранённые пресеты конфигурации.

Профили встроены в программу и задают формат и режим переноса тегов
(archive, web, refresh). Пресеты хранятся в ~/.config/phototagger/presets/
и позволяют сохранять полные наборы настроек для разных архивов.

Примеры:
  # Сохранить текущие настройки как пресет
  phototagger --src ./scans --out ./processed --preset archive --save-preset family-archive

  # Загрузить пресет и запустить обработку
  phototagger --load-preset family-archive

  # Список профилей и пресетов
  phototagger presets list

  # Удалить пресет
  phototagger presets delete family-archive`,
	}

	cmd.AddCommand(newPresetsListCmd())
	cmd.AddCommand(newPresetsDeleteCmd())
	cmd.AddCommand(newPresetsShowCmd())

	return cmd
}

// newPresetsListCmd создаёт команду для списка профилей и пресетов.
func newPresetsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Показать встроенные профили и сохранённые пресеты",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Встроенные профили
			fmt.Printf("📦 Встроенные профили (%d):\n\n", len(config.Presets))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tФОРМАТ\tRETAG\tRECONVERT")
			fmt.Fprintln(w, "---\t------\t-----\t---------")
			for _, name := range config.ValidPresets() {
				p := config.Presets[config.Preset(name)]
				fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", name, p.Format, p.Retag, p.Reconvert)
			}
			w.Flush()

			// Сохранённые пресеты
			presets, err := config.ListPresets()
			if err != nil {
				return fmt.Errorf("ошибка получения списка пресетов: %w", err)
			}

			if len(presets) == 0 {
				fmt.Println()
				fmt.Println("Сохранённых пресетов нет.")
				fmt.Println()
				fmt.Println("Сохраните пресет командой:")
				fmt.Println("  phototagger --src ./scans --out ./processed --save-preset my-archive")
				return nil
			}

			fmt.Printf("\n📦 Сохранённые пресеты (%d):\n\n", len(presets))

			w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ИМЯ\tФОРМАТ\tИСТОЧНИКИ\tПУТЬ")
			fmt.Fprintln(w, "---\t------\t---------\t----")

			for _, p := range presets {
				format := "-"
				sources := "-"
				if p.Config != nil {
					if p.Config.Output != nil && p.Config.Output.Format != "" {
						format = p.Config.Output.Format
					}
					if p.Config.Sources != nil && len(p.Config.Sources.Dirs) > 0 {
						sources = fmt.Sprintf("%d", len(p.Config.Sources.Dirs))
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, format, sources, p.Path)
			}
			w.Flush()

			return nil
		},
	}
}

// newPresetsDeleteCmd создаёт команду для удаления пресета.
func newPresetsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Удалить сохранённый пресет",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !config.PresetExists(name) {
				return fmt.Errorf("пресет '%s' не найден", name)
			}

			if err := config.DeletePreset(name); err != nil {
				return fmt.Errorf("ошибка удаления пресета: %w", err)
			}

			fmt.Printf("✅ Пресет '%s' удалён\n", name)
			return nil
		},
	}
}

// newPresetsShowCmd создаёт команду для отображения пресета.
func newPresetsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Показать содержимое сохранённого пресета",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			fc, path, err := config.LoadPreset(name)
			if err != nil {
				return err
			}
			if fc == nil {
				return fmt.Errorf("пресет '%s' не найден", name)
			}

			fmt.Printf("📦 Пресет: %s\n", name)
			fmt.Printf("📁 Путь: %s\n\n", path)

			if fc.Sources != nil && len(fc.Sources.Dirs) > 0 {
				fmt.Println("Sources:")
				for _, d := range fc.Sources.Dirs {
					fmt.Printf("  - %s\n", d)
				}
			}

			if fc.Output != nil {
				fmt.Println("Output:")
				if fc.Output.Dir != "" {
					fmt.Printf("  dir: %s\n", fc.Output.Dir)
				}
				if fc.Output.Format != "" {
					fmt.Printf("  format: %s\n", fc.Output.Format)
				}
			}

			if fc.Tagging != nil {
				fmt.Println("Tagging:")
				fmt.Printf("  retag: %v\n", fc.Tagging.Retag)
				fmt.Printf("  reconvert: %v\n", fc.Tagging.Reconvert)
			}

			if fc.Processing != nil {
				fmt.Println("Processing:")
				if fc.Processing.Preset != "" {
					fmt.Printf("  preset: %s\n", fc.Processing.Preset)
				}
				if fc.Processing.Watch {
					fmt.Printf("  watch: %v\n", fc.Processing.Watch)
				}
				if fc.Processing.Verbose {
					fmt.Printf("  verbose: %v\n", fc.Processing.Verbose)
				}
			}

			if fc.Paths != nil && fc.Paths.DB != "" {
				fmt.Println("Paths:")
				fmt.Printf("  db: %s\n", fc.Paths.DB)
			}

			return nil
		},
	}
}

/*
Возможные расширения:
- Добавить команду 'presets export' для экспорта в файл
- Добавить команду 'presets import' для импорта из файла
- Добавить команду 'presets copy' для копирования пресета
*/
