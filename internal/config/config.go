// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TargetFormat определяет целевой формат конвертированных копий.
type TargetFormat string

const (
	FormatJPEG TargetFormat = "jpeg"
	FormatJPG  TargetFormat = "jpg"
	FormatTIFF TargetFormat = "tiff"
	FormatTIF  TargetFormat = "tif"
	FormatPNG  TargetFormat = "png"
)

// DefaultFormat - безопасный формат, подставляемый вместо неподдерживаемого.
const DefaultFormat = FormatJPG

// allowedFormats - закрытый список поддерживаемых целевых форматов.
var allowedFormats = map[TargetFormat]bool{
	FormatJPEG: true,
	FormatJPG:  true,
	FormatTIFF: true,
	FormatTIF:  true,
	FormatPNG:  true,
}

// ParseTargetFormat разбирает строку формата без учёта регистра и ведущей точки.
// Неподдерживаемый формат не является ошибкой: вместо него молча подставляется
// DefaultFormat, чтобы плохая строка конфигурации не остановила обработку.
func ParseTargetFormat(s string) TargetFormat {
	f := TargetFormat(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if allowedFormats[f] {
		return f
	}
	return DefaultFormat
}

// ValidFormats возвращает список поддерживаемых форматов.
func ValidFormats() []string {
	return []string{
		string(FormatJPEG),
		string(FormatJPG),
		string(FormatTIFF),
		string(FormatTIF),
		string(FormatPNG),
	}
}

// Config содержит все настройки обработки.
type Config struct {
	// SourceDirs - директории с исходными изображениями.
	SourceDirs []string

	// OutputDir - директория для конвертированных копий (плоская, без поддиректорий).
	OutputDir string

	// TargetFormat - целевой формат конвертации.
	TargetFormat TargetFormat

	// Retag - переносить теги заново даже для уже конвертированных файлов.
	Retag bool

	// Reconvert - конвертировать заново даже если копия уже существует.
	Reconvert bool

	// Preset - именованный профиль настроек (archive, web, refresh).
	Preset string

	// Watch - режим слежения за исходными директориями.
	Watch bool

	// Verbose - подробный вывод.
	Verbose bool

	// NoProgress - отключить прогресс-бар.
	NoProgress bool

	// DBPath - путь к SQLite базе истории запусков.
	DBPath string

	// NoDB - не записывать историю запусков.
	NoDB bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() *Config {
	return &Config{
		TargetFormat: DefaultFormat,
		Retag:        false,
		Reconvert:    false,
		Verbose:      false,
	}
}

// Validate проверяет корректность конфигурации.
func (c *Config) Validate() error {
	if len(c.SourceDirs) == 0 {
		return fmt.Errorf("исходные директории не указаны (--src)")
	}
	for _, d := range c.SourceDirs {
		if d == "" {
			return fmt.Errorf("пустой путь в списке исходных директорий")
		}
	}
	if c.OutputDir == "" {
		return fmt.Errorf("выходная директория не указана (--out)")
	}

	// Плохой формат не останавливает обработку - подставляем безопасный
	c.TargetFormat = ParseTargetFormat(string(c.TargetFormat))

	// Устанавливаем путь к БД истории по умолчанию
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.OutputDir, ".phototagger", "history.db")
	}

	return nil
}

/*
Возможные расширения:
- Добавить фильтр расширений исходных файлов
- Добавить настраиваемый тег происхождения
- Добавить лимит на количество файлов за запуск
*/
