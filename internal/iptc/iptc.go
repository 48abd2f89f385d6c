// Package iptc реализует чтение и запись IPTC IIM метаданных в JPEG, TIFF и PNG.
//
// Блок IIM (последовательность датасетов) хранится в каждом контейнере
// по-своему: в JPEG - внутри сегмента APP13 (ресурс Photoshop 0x0404),
// в TIFF - в теге 33723 (IPTC-NAA), в PNG - в текстовом чанке
// "Raw profile type iptc". Пакет скрывает эти различия за ReadFile/WriteFile.
package iptc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Record представляет одно поле IPTC метаданных.
type Record struct {
	// Key - ключ поля в стиле exiv2, например "Iptc.Application2.Keywords".
	// Пустой ключ означает отсутствие метаданных.
	Key string

	// Tags - упорядоченные значения поля. Повторяемые датасеты
	// (например ключевые слова) дают несколько значений.
	Tags []string
}

// KeywordsKey - ключ поля ключевых слов (запись 2, датасет 25).
const KeywordsKey = "Iptc.Application2.Keywords"

const (
	// iimMarker - байт-маркер начала датасета IIM.
	iimMarker = 0x1C

	// recEnvelope - номер записи конверта (структурные датасеты).
	recEnvelope = 0x01
	// recApp - номер прикладной записи (Application Record 2).
	recApp = 0x02

	// dsRecordVersion - датасет 2:00, версия записи.
	dsRecordVersion = 0
	// dsKeywords - датасет 2:25, ключевые слова.
	dsKeywords = 25
	// dsCharset - датасет 1:90, кодировка данных.
	dsCharset = 90
)

// datasetNames отображает номер датасета записи 2 на имя в стиле exiv2.
var datasetNames = map[byte]string{
	5:          "ObjectName",
	dsKeywords: "Keywords",
	80:         "Byline",
	85:         "BylineTitle",
	90:         "City",
	101:        "CountryName",
	105:        "Headline",
	110:        "Credit",
	115:        "Source",
	116:        "Copyright",
	120:        "Caption",
}

// datasetIDs - обратное отображение ключа на номер датасета.
var datasetIDs = func() map[string]byte {
	m := make(map[string]byte, len(datasetNames))
	for ds, name := range datasetNames {
		m["Iptc.Application2."+name] = ds
	}
	return m
}()

// datasetKey возвращает ключ exiv2 для номера датасета записи 2.
func datasetKey(ds byte) string {
	if name, ok := datasetNames[ds]; ok {
		return "Iptc.Application2." + name
	}
	return fmt.Sprintf("Iptc.Application2.0x%04x", ds)
}

// DecodeIIM разбирает поток датасетов IIM в записи.
// Повторяемые датасеты одного ключа собираются в одну запись,
// порядок записей соответствует первому появлению ключа.
// Структурные датасеты (конверт, версия записи) пропускаются.
func DecodeIIM(data []byte) ([]Record, error) {
	var order []string
	byKey := make(map[string][]string)

	i := 0
	for i+5 <= len(data) {
		if data[i] != iimMarker {
			// Пропускаем выравнивающие байты до следующего маркера
			i++
			continue
		}
		rec := data[i+1]
		ds := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		if length&0x8000 != 0 {
			return nil, fmt.Errorf("расширенный датасет IIM не поддерживается")
		}
		i += 5
		if i+length > len(data) {
			return nil, fmt.Errorf("датасет IIM выходит за границы блока")
		}
		val := data[i : i+length]
		i += length

		// Конверт и версия записи - структурные, не метаданные
		if rec != recApp || ds == dsRecordVersion {
			continue
		}

		key := datasetKey(ds)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], string(val))
	}

	var records []Record
	for _, k := range order {
		records = append(records, Record{Key: k, Tags: byKey[k]})
	}
	return records, nil
}

// EncodeIIM собирает поток IIM из записей: конверт с кодировкой UTF-8,
// версия записи 2 и по одному датасету на каждое значение.
// Записи с неизвестными ключами пропускаются.
func EncodeIIM(records []Record) []byte {
	var buf bytes.Buffer

	// 1:90 - кодировка UTF-8 (ESC % G)
	writeDataset(&buf, recEnvelope, dsCharset, []byte{0x1B, 0x25, 0x47})
	// 2:00 - версия записи
	writeDataset(&buf, recApp, dsRecordVersion, []byte{0x00, 0x04})

	for _, r := range records {
		ds, ok := datasetIDs[r.Key]
		if !ok {
			continue
		}
		for _, tag := range r.Tags {
			writeDataset(&buf, recApp, ds, []byte(tag))
		}
	}
	return buf.Bytes()
}

// writeDataset добавляет один стандартный датасет в буфер.
func writeDataset(buf *bytes.Buffer, rec, ds byte, val []byte) {
	if len(val) > 0x7FFF {
		val = val[:0x7FFF] // стандартный датасет ограничен 32К
	}
	buf.WriteByte(iimMarker)
	buf.WriteByte(rec)
	buf.WriteByte(ds)
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(val)))
	buf.Write(l[:])
	buf.Write(val)
}

// Kind определяет контейнер изображения.
type Kind int

const (
	KindUnknown Kind = iota
	KindJPEG
	KindPNG
	KindTIFF
)

// String возвращает читаемое имя контейнера.
func (k Kind) String() string {
	switch k {
	case KindJPEG:
		return "jpeg"
	case KindPNG:
		return "png"
	case KindTIFF:
		return "tiff"
	default:
		return "unknown"
	}
}

// DetectKind определяет контейнер по сигнатуре файла.
func DetectKind(data []byte) Kind {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return KindJPEG
	case bytes.HasPrefix(data, pngSignature):
		return KindPNG
	case len(data) >= 4 && data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0x00:
		return KindTIFF
	case len(data) >= 4 && data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2A:
		return KindTIFF
	default:
		return KindUnknown
	}
}

// ReadFile читает IPTC записи из файла изображения.
// Возвращает nil записи и nil ошибку, если блока IPTC в файле нет.
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл %s: %w", path, err)
	}

	switch DetectKind(data) {
	case KindJPEG:
		return decodeJPEG(data)
	case KindPNG:
		return decodePNG(data)
	case KindTIFF:
		return decodeTIFF(data)
	default:
		return nil, fmt.Errorf("неподдерживаемый контейнер изображения: %s", path)
	}
}

// WriteFile записывает блок IPTC в файл изображения, заменяя существующий.
// Файл перезаписывается атомарно: через временный файл и переименование.
func WriteFile(path string, records []Record) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("не удалось прочитать файл %s: %w", path, err)
	}

	payload := EncodeIIM(records)

	var out []byte
	switch DetectKind(data) {
	case KindJPEG:
		out, err = encodeJPEG(data, payload)
	case KindPNG:
		out, err = encodePNG(data, payload)
	case KindTIFF:
		out, err = encodeTIFF(data, payload)
	default:
		return fmt.Errorf("неподдерживаемый контейнер изображения: %s", path)
	}
	if err != nil {
		return err
	}

	return writeAtomic(path, out)
}

// writeAtomic записывает данные во временный файл рядом с целевым
// и переименовывает его, сохраняя права доступа оригинала.
func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("не удалось получить информацию о файле %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".iptc-*")
	if err != nil {
		return fmt.Errorf("не удалось создать временный файл: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("не удалось записать временный файл: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("не удалось закрыть временный файл: %w", err)
	}

	if err := os.Chmod(tmpPath, info.Mode()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("не удалось выставить права на временный файл: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("не удалось переименовать %s -> %s: %w", tmpPath, path, err)
	}
	return nil
}

/*
Возможные расширения:
- Поддержка расширенных датасетов IIM (длина > 32К)
- Чтение ресурса 0x0404 из TIFF тега 34377 (Photoshop IRB)
- Конвертация кодировок для файлов без датасета 1:90
*/
