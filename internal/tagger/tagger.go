// Package tagger переносит ключевые слова IPTC с исходного изображения
// на конвертированное.
package tagger

import (
	"fmt"
	"path/filepath"

	"github.com/artemshloyda/phototagger/internal/iptc"
)

// ProvenanceTag - метка, добавляемая к скопированным ключевым словам.
// По ней конвертированные файлы отличимы от размеченных вручную.
const ProvenanceTag = "SPM: TAGS COPIED FROM ORIGINAL"

// ReadKeywords читает все IPTC записи изображения dir/file.
// У изображения без метаданных возвращается ровно одна пустая запись,
// а не пустой список: вызывающему коду всегда есть на что опереться.
func ReadKeywords(dir, file string) ([]iptc.Record, error) {
	records, err := iptc.ReadFile(filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать метаданные %s: %w", file, err)
	}
	if len(records) == 0 {
		return []iptc.Record{{}}, nil
	}
	return records, nil
}

// WriteKeywords записывает значения записи в поле ключевых слов файла
// dir/file. Поддерживается только поле ключевых слов: запись с любым
// другим ключом молча пропускается. Остальные IPTC поля файла при
// записи сохраняются.
func WriteKeywords(dir, file string, record iptc.Record) error {
	if record.Key != iptc.KeywordsKey {
		return nil
	}

	path := filepath.Join(dir, file)

	// Существующий блок перечитывается, чтобы заменить только ключевые
	// слова. Ошибка чтения не препятствует записи: блока могло не быть.
	existing, _ := iptc.ReadFile(path)

	merged := make([]iptc.Record, 0, len(existing)+1)
	replaced := false
	for _, r := range existing {
		if r.Key == iptc.KeywordsKey {
			merged = append(merged, record)
			replaced = true
			continue
		}
		merged = append(merged, r)
	}
	if !replaced {
		merged = append(merged, record)
	}

	if err := iptc.WriteFile(path, merged); err != nil {
		return fmt.Errorf("не удалось записать ключевые слова в %s: %w", file, err)
	}
	return nil
}

// WithProvenance возвращает копию записи с добавленной меткой переноса.
// Запись без значений возвращается как есть: на файлах без метаданных
// метка не появляется.
func WithProvenance(record iptc.Record) iptc.Record {
	if len(record.Tags) == 0 {
		return record
	}
	tags := make([]string, 0, len(record.Tags)+1)
	tags = append(tags, record.Tags...)
	tags = append(tags, ProvenanceTag)
	return iptc.Record{Key: record.Key, Tags: tags}
}

/*
Возможные расширения:
- Перенос остальных полей Application Record 2 (автор, описание, город)
- Слияние ключевых слов вместо замены при повторной разметке
*/
