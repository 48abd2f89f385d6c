package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/artemshloyda/phototagger/internal/converter"
	"github.com/artemshloyda/phototagger/internal/iptc"
)

// FailKind классифицирует сбой обработки одного файла или директории.
// Список закрытый: вызывающий код может исчерпывающе разобрать вид сбоя
// и решить, что имеет смысл повторять, а что нет.
type FailKind int

const (
	// FailEnumeration - директорию не удалось перечислить.
	FailEnumeration FailKind = iota

	// FailConversion - файл не удалось декодировать или перекодировать.
	FailConversion

	// FailMetadataRead - не удалось прочитать метаданные исходного файла.
	FailMetadataRead

	// FailMetadataWrite - не удалось записать метаданные в копию.
	FailMetadataWrite
)

// String возвращает читаемое имя вида сбоя.
func (k FailKind) String() string {
	switch k {
	case FailEnumeration:
		return "enumeration"
	case FailConversion:
		return "conversion"
	case FailMetadataRead:
		return "metadata-read"
	case FailMetadataWrite:
		return "metadata-write"
	default:
		return "unknown"
	}
}

// Failure описывает один локализованный сбой. Сбой не останавливает
// конвейер: он логируется и попадает в результат затронутого файла.
type Failure struct {
	// Kind - вид сбоя.
	Kind FailKind

	// Dir - директория, в которой произошёл сбой.
	Dir string

	// File - имя исходного файла. Пустое для сбоев перечисления.
	File string

	// Err - первопричина.
	Err error
}

// Error возвращает описание сбоя одной строкой.
func (f *Failure) Error() string {
	if f.File == "" {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Dir, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, filepath.Join(f.Dir, f.File), f.Err)
}

// Unwrap возвращает первопричину сбоя.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Result - итог обработки одного исходного файла.
// Конвейер создаёт свежее значение на каждый файл и после выдачи
// не хранит на него ссылок: результаты не разделяют состояние.
type Result struct {
	// SourceDir - директория исходного файла.
	SourceDir string

	// SourceFile - имя исходного файла.
	SourceFile string

	// Conversion - запись о конвертированной копии.
	Conversion converter.Record

	// Metadata - последняя рассмотренная запись метаданных источника
	// (с меткой переноса, если она добавлялась).
	Metadata iptc.Record

	// Converted - файл перекодирован в этом запуске.
	Converted bool

	// Skipped - копия уже существовала, перекодирование пропущено.
	Skipped bool

	// Tagged - ключевые слова записаны в копию.
	Tagged bool

	// Failure - сбой обработки. nil, если файл обработан чисто.
	Failure *Failure
}

// Stats агрегирует счётчики одного запуска конвейера.
type Stats struct {
	// Total - сколько результатов выдал конвейер.
	Total int

	// Converted - файлов перекодировано.
	Converted int

	// Skipped - файлов пропущено (копия уже существовала).
	Skipped int

	// Tagged - файлов с перенесёнными ключевыми словами.
	Tagged int

	// Failed - файлов, обработанных со сбоем.
	Failed int

	// Dirs - исходных директорий, перечисленных успешно.
	Dirs int
}

// add учитывает один результат в счётчиках.
func (s *Stats) add(r *Result) {
	s.Total++
	if r.Converted {
		s.Converted++
	}
	if r.Skipped {
		s.Skipped++
	}
	if r.Tagged {
		s.Tagged++
	}
	if r.Failure != nil {
		s.Failed++
	}
}
