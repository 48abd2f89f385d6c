// Package cli содержит CLI команды приложения.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	"github.com/spf13/cobra"

	"github.com/artemshloyda/phototagger/internal/iptc"
	"github.com/artemshloyda/phototagger/internal/scanner"
	"github.com/artemshloyda/phototagger/internal/tagger"
)

// exifSummary - краткая сводка EXIF-данных одного файла.
type exifSummary struct {
	// Count - сколько EXIF-тегов найдено.
	Count int

	// Model - модель камеры, если записана.
	Model string

	// Taken - дата съёмки, если записана.
	Taken string
}

// newInspectCmd создаёт команду inspect.
func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [dir]",
		Short: "Показать метаданные изображений в директории",
		Long: `Показать метаданные изображений в директории без обработки.

Для каждого файла выводится контейнер, IPTC ключевые слова и краткая
сводка EXIF (модель камеры, дата съёмки). Удобно для осмотра архива
перед конвертацией.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			files, err := scanner.ListFiles(dir)
			if err != nil {
				return err
			}

			fmt.Printf("📁 Обзор директории %s (файлов: %d)\n\n", dir, len(files))

			for _, file := range files {
				inspectFile(dir, file)
			}

			return nil
		},
	}
}

// inspectFile выводит метаданные одного файла.
func inspectFile(dir, file string) {
	path := filepath.Join(dir, file)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("⚠️  %s: %v\n\n", file, err)
		return
	}

	kind := iptc.DetectKind(data)
	if kind == iptc.KindUnknown {
		fmt.Printf("⏭️  %s: контейнер без поддержки метаданных\n\n", file)
		return
	}

	fmt.Printf("%s (%s)\n", file, kind)

	// IPTC ключевые слова и прочие текстовые поля
	records, err := tagger.ReadKeywords(dir, file)
	if err != nil {
		fmt.Printf("   ⚠️  IPTC: %v\n", err)
	} else {
		printed := false
		for _, rec := range records {
			if len(rec.Tags) == 0 {
				continue
			}
			name := strings.TrimPrefix(rec.Key, "Iptc.Application2.")
			fmt.Printf("   🏷️  %s: %s\n", name, strings.Join(rec.Tags, ", "))
			printed = true
		}
		if !printed {
			fmt.Printf("   🏷️  IPTC-метаданных нет\n")
		}
	}

	// Краткая сводка EXIF
	sum, err := summarizeExif(data)
	switch {
	case err != nil:
		fmt.Printf("   ⚠️  EXIF: %v\n", err)
	case sum.Count == 0:
		fmt.Printf("   EXIF отсутствует\n")
	default:
		line := fmt.Sprintf("   EXIF: тегов %d", sum.Count)
		if sum.Model != "" {
			line += ", камера " + sum.Model
		}
		if sum.Taken != "" {
			line += ", снято " + sum.Taken
		}
		fmt.Println(line)
	}

	fmt.Println()
}

// summarizeExif собирает краткую сводку EXIF-данных файла.
// Отсутствие EXIF-блока не является ошибкой.
func summarizeExif(data []byte) (exifSummary, error) {
	sum := exifSummary{}

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if isNoExif(err) {
			return sum, nil
		}
		return sum, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearch(rawExif, nil, true)
	if err != nil {
		return sum, err
	}

	for _, tag := range tags {
		sum.Count++
		switch tag.TagName {
		case "Model":
			sum.Model = strings.TrimSpace(tag.FormattedFirst)
		case "DateTimeOriginal":
			sum.Taken = tag.FormattedFirst
		case "DateTime":
			if sum.Taken == "" {
				sum.Taken = tag.FormattedFirst
			}
		}
	}

	return sum, nil
}

// isNoExif распознаёт ошибку отсутствия EXIF-блока.
func isNoExif(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}

/*
Возможные расширения:
- Добавить вывод GPS-координат, если они записаны
- Добавить флаг --json для машинного вывода
- Добавить рекурсивный обзор поддиректорий
*/
