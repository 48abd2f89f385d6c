// Package config содержит конфигурацию приложения.
package config

// Preset определяет именованный профиль настроек.
type Preset string

const (
	// PresetArchive - архивная копия: TIFF, теги переносятся заново при каждом запуске.
	PresetArchive Preset = "archive"
	// PresetWeb - копия для веба: JPG, только новые файлы.
	PresetWeb Preset = "web"
	// PresetRefresh - полное обновление: JPG, повторная конвертация и перенос тегов.
	PresetRefresh Preset = "refresh"
)

// PresetConfig содержит настройки для профиля.
type PresetConfig struct {
	// Format - целевой формат.
	Format TargetFormat
	// Retag - переносить теги заново для уже конвертированных файлов.
	Retag bool
	// Reconvert - конвертировать заново даже если копия уже существует.
	Reconvert bool
}

// Presets содержит все доступные профили.
var Presets = map[Preset]PresetConfig{
	PresetArchive: {
		Format:    FormatTIFF,
		Retag:     true,
		Reconvert: false,
	},
	PresetWeb: {
		Format:    FormatJPG,
		Retag:     false,
		Reconvert: false,
	},
	PresetRefresh: {
		Format:    FormatJPG,
		Retag:     true,
		Reconvert: true,
	},
}

// ApplyPreset применяет профиль к конфигурации.
// Возвращает true, если профиль был применён.
func (c *Config) ApplyPreset(preset string) bool {
	p, ok := Presets[Preset(preset)]
	if !ok {
		return false
	}

	c.TargetFormat = p.Format
	c.Retag = p.Retag
	c.Reconvert = p.Reconvert

	return true
}

// ValidPresets возвращает список доступных профилей.
func ValidPresets() []string {
	return []string{
		string(PresetArchive),
		string(PresetWeb),
		string(PresetRefresh),
	}
}

/*
Возможные расширения:
- Добавить пользовательские профили из конфигурационного файла
- Добавить профиль для печати (tif без повторного переноса)
*/
