// Package config содержит конфигурацию приложения.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig представляет структуру конфигурационного файла YAML.
// Все поля опциональны - если не указаны, используются значения по умолчанию.
type FileConfig struct {
	// Sources - настройки исходных директорий.
	Sources *SourcesConfig `yaml:"sources,omitempty"`

	// Output - настройки выходных данных.
	Output *OutputConfig `yaml:"output,omitempty"`

	// Tagging - настройки переноса тегов.
	Tagging *TaggingConfig `yaml:"tagging,omitempty"`

	// Processing - настройки обработки.
	Processing *ProcessingConfig `yaml:"processing,omitempty"`

	// Paths - настройки путей.
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// SourcesConfig содержит настройки исходных директорий.
type SourcesConfig struct {
	// Dirs - директории с исходными изображениями.
	Dirs []string `yaml:"dirs,omitempty"`
}

// OutputConfig содержит настройки выходных данных.
type OutputConfig struct {
	// Dir - директория для конвертированных копий.
	Dir string `yaml:"dir,omitempty"`

	// Format - целевой формат (jpeg, jpg, tiff, tif, png).
	Format string `yaml:"format,omitempty"`
}

// TaggingConfig содержит настройки переноса тегов.
type TaggingConfig struct {
	// Retag - переносить теги заново для уже конвертированных файлов.
	Retag bool `yaml:"retag,omitempty"`

	// Reconvert - конвертировать заново даже если копия уже существует.
	Reconvert bool `yaml:"reconvert,omitempty"`
}

// ProcessingConfig содержит настройки обработки.
type ProcessingConfig struct {
	// Preset - именованный профиль настроек.
	Preset string `yaml:"preset,omitempty"`

	// Watch - режим слежения за исходными директориями.
	Watch bool `yaml:"watch,omitempty"`

	// Verbose - подробный вывод.
	Verbose bool `yaml:"verbose,omitempty"`

	// NoProgress - отключить прогресс-бар.
	NoProgress bool `yaml:"no_progress,omitempty"`
}

// PathsConfig содержит настройки путей.
type PathsConfig struct {
	// DB - путь к SQLite базе истории запусков.
	DB string `yaml:"db,omitempty"`
}

// DefaultConfigPaths возвращает список путей для поиска конфигурационного файла.
// Поиск выполняется в следующем порядке:
// 1. ./phototagger.yaml (текущая директория)
// 2. ./phototagger.yml
// 3. ~/.config/phototagger/config.yaml
// 4. ~/.config/phototagger/config.yml
func DefaultConfigPaths() []string {
	paths := []string{
		"phototagger.yaml",
		"phototagger.yml",
	}

	// Добавляем путь в домашней директории
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "phototagger", "config.yaml"),
			filepath.Join(home, ".config", "phototagger", "config.yml"),
		)
	}

	return paths
}

// LoadFromFile загружает конфигурацию из указанного файла.
// Возвращает nil, nil если файл не существует.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", path, err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML в %s: %w", path, err)
	}

	return &fc, nil
}

// FindAndLoadConfig ищет и загружает конфигурационный файл из стандартных путей.
// Если configPath указан явно, использует только его.
// Возвращает nil, nil если файл не найден.
func FindAndLoadConfig(configPath string) (*FileConfig, string, error) {
	// Если путь указан явно
	if configPath != "" {
		fc, err := LoadFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		if fc == nil {
			return nil, "", fmt.Errorf("файл конфигурации не найден: %s", configPath)
		}
		return fc, configPath, nil
	}

	// Ищем в стандартных путях
	for _, path := range DefaultConfigPaths() {
		fc, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		if fc != nil {
			return fc, path, nil
		}
	}

	return nil, "", nil
}

// ApplyToConfig применяет настройки из файла к основной конфигурации.
// CLI флаги имеют приоритет над файлом конфигурации, поэтому
// эта функция должна вызываться до применения CLI флагов.
func (fc *FileConfig) ApplyToConfig(cfg *Config) {
	if fc == nil {
		return
	}

	// Sources
	if fc.Sources != nil {
		if len(fc.Sources.Dirs) > 0 {
			cfg.SourceDirs = fc.Sources.Dirs
		}
	}

	// Output
	if fc.Output != nil {
		if fc.Output.Dir != "" {
			cfg.OutputDir = fc.Output.Dir
		}
		if fc.Output.Format != "" {
			cfg.TargetFormat = ParseTargetFormat(fc.Output.Format)
		}
	}

	// Tagging
	if fc.Tagging != nil {
		if fc.Tagging.Retag {
			cfg.Retag = true
		}
		if fc.Tagging.Reconvert {
			cfg.Reconvert = true
		}
	}

	// Processing
	if fc.Processing != nil {
		if fc.Processing.Preset != "" {
			cfg.Preset = fc.Processing.Preset
		}
		if fc.Processing.Watch {
			cfg.Watch = true
		}
		if fc.Processing.Verbose {
			cfg.Verbose = true
		}
		if fc.Processing.NoProgress {
			cfg.NoProgress = true
		}
	}

	// Paths
	if fc.Paths != nil {
		if fc.Paths.DB != "" {
			cfg.DBPath = fc.Paths.DB
		}
	}
}

// FromConfig строит файловое представление конфигурации.
// Заполняются только значимые поля: нулевые значения не сериализуются.
func FromConfig(cfg *Config) *FileConfig {
	fc := &FileConfig{}

	if len(cfg.SourceDirs) > 0 {
		fc.Sources = &SourcesConfig{Dirs: cfg.SourceDirs}
	}

	if cfg.OutputDir != "" || cfg.TargetFormat != "" {
		fc.Output = &OutputConfig{
			Dir:    cfg.OutputDir,
			Format: string(cfg.TargetFormat),
		}
	}

	if cfg.Retag || cfg.Reconvert {
		fc.Tagging = &TaggingConfig{
			Retag:     cfg.Retag,
			Reconvert: cfg.Reconvert,
		}
	}

	if cfg.Preset != "" || cfg.Watch || cfg.Verbose || cfg.NoProgress {
		fc.Processing = &ProcessingConfig{
			Preset:     cfg.Preset,
			Watch:      cfg.Watch,
			Verbose:    cfg.Verbose,
			NoProgress: cfg.NoProgress,
		}
	}

	if cfg.DBPath != "" {
		fc.Paths = &PathsConfig{DB: cfg.DBPath}
	}

	return fc
}

// SaveToFile сохраняет конфигурацию в YAML-файл.
func (fc *FileConfig) SaveToFile(path string) error {
	data, err := yaml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать конфигурацию: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("не удалось записать файл %s: %w", path, err)
	}

	return nil
}

// GenerateExampleConfig генерирует пример конфигурационного файла.
func GenerateExampleConfig() string {
	return `# PhotoTagger Configuration File
# Все параметры опциональны - если не указаны, используются значения по умолчанию.
# CLI флаги имеют приоритет над этим файлом.

sources:
  # Директории с исходными изображениями
  dirs:
    - "./photos/originals"
    - "./photos/scans"

output:
  # Директория для конвертированных копий (плоская)
  dir: "./photos/processed"
  # Целевой формат: jpeg, jpg, tiff, tif, png
  format: jpg

tagging:
  # Перенести теги заново для уже конвертированных файлов
  retag: false
  # Конвертировать заново даже если копия уже существует
  reconvert: false

processing:
  # Именованный профиль: archive, web, refresh
  preset: ""
  # Режим слежения за исходными директориями
  watch: false
  # Подробный вывод
  verbose: false
  # Отключить прогресс-бар
  no_progress: false

paths:
  # Путь к SQLite базе истории запусков
  db: ""
`
}

/*
Возможные расширения:
- Добавить поддержку TOML формата
- Добавить валидацию значений в файле конфигурации
*/
