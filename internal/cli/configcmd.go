package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/phototagger/internal/config"
)

// newConfigCmd создаёт команду для работы с конфигурационным файлом.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с конфигурационным файлом",
		Long: `Работа с конфигурационным файлом.

Конфигурация ищется в ./phototagger.yaml, ./phototagger.yml,
~/.config/phototagger/config.yaml и ~/.config/phototagger/config.yml.
Явный путь задаётся флагом --config.

Примеры:
  # Создать phototagger.yaml в текущей директории
  phototagger config init

  # Создать файл по указанному пути
  phototagger config init --path archive.yaml

  # Вывести пример конфигурации в stdout
  phototagger config example`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigExampleCmd())

	return cmd
}

// newConfigInitCmd создаёт команду для генерации конфигурационного файла.
func newConfigInitCmd() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Создать конфигурационный файл с примером настроек",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("файл %s уже существует (--force для перезаписи)", path)
			}

			if err := os.WriteFile(path, []byte(config.GenerateExampleConfig()), 0o644); err != nil {
				return fmt.Errorf("не удалось записать файл %s: %w", path, err)
			}

			fmt.Printf("✅ Конфигурация создана: %s\n", path)
			fmt.Println("Отредактируйте файл и запустите обработку: phototagger")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "phototagger.yaml", "путь к создаваемому файлу")
	cmd.Flags().BoolVar(&force, "force", false, "перезаписать существующий файл")

	return cmd
}

// newConfigExampleCmd создаёт команду для вывода примера конфигурации.
func newConfigExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Вывести пример конфигурации в stdout",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.GenerateExampleConfig())
		},
	}
}
