// Package converter перекодирует изображения в целевой формат.
//
// Конвертация выполняется в процессе, без внешних утилит: декодер и
// кодек подбираются по расширению, запись идёт с максимальным качеством.
package converter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/artemshloyda/phototagger/internal/config"
)

// Record описывает результат конвертации одного файла.
type Record struct {
	// SourcePath - каталог исходного файла.
	SourcePath string

	// ProcessedPath - каталог с готовыми файлами.
	ProcessedPath string

	// Filename - имя записанного файла внутри ProcessedPath.
	Filename string
}

// Converter перекодирует изображения в один целевой формат.
type Converter struct {
	format config.TargetFormat
}

// New создаёт конвертер для заданного формата.
// Формат вне списка поддерживаемых молча заменяется форматом
// по умолчанию: плохая строка конфигурации не останавливает конвейер.
func New(format string) *Converter {
	return &Converter{format: config.ParseTargetFormat(format)}
}

// Format возвращает действующий целевой формат конвертера.
func (c *Converter) Format() config.TargetFormat {
	return c.format
}

// Convert перекодирует файл srcName из каталога srcDir и записывает
// результат в destDir под именем newName с расширением целевого формата.
// Исходный файл не изменяется и не удаляется.
func (c *Converter) Convert(srcDir, srcName, newName, destDir string) (*Record, error) {
	src := filepath.Join(srcDir, srcName)

	img, err := imaging.Open(src)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть изображение %s: %w", src, err)
	}

	// Расширение в newName заменяется расширением целевого формата
	outName := strings.TrimSuffix(newName, filepath.Ext(newName)) + "." + string(c.format)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать выходную директорию %s: %w", destDir, err)
	}

	encFormat, err := imaging.FormatFromExtension(string(c.format))
	if err != nil {
		return nil, fmt.Errorf("неподдерживаемый формат %s: %w", c.format, err)
	}

	// Запись через временный файл: читатели каталога не видят недописанных файлов
	tmp, err := os.CreateTemp(destDir, ".converting-*")
	if err != nil {
		return nil, fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	tmpPath := tmp.Name()

	if err := imaging.Encode(tmp, img, encFormat, imaging.JPEGQuality(100)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("не удалось закодировать %s в %s: %w", srcName, c.format, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("не удалось закрыть временный файл: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("не удалось выставить права на временный файл: %w", err)
	}

	outPath := filepath.Join(destDir, outName)
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("не удалось переименовать %s -> %s: %w", tmpPath, outPath, err)
	}

	return &Record{
		SourcePath:    srcDir,
		ProcessedPath: destDir,
		Filename:      outName,
	}, nil
}

/*
Возможные расширения:
- Ограничение размеров результата (даунскейл перед кодированием)
- Настраиваемое качество JPEG вместо фиксированного максимума
- Поддержка WebP и AVIF через дополнительные кодеки
*/
