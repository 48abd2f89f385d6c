// Package pipeline реализует конвейер конвертации и переноса метаданных.
//
// Конвейер ленивый: каждый вызов Next обрабатывает ровно один исходный
// файл (конвертация плюс перенос ключевых слов) и выдаёт один результат.
// Последовательность конечна и не перезапускается: для повторного прохода
// создаётся новый конвейер. Ни один сбой отдельного файла или директории
// не останавливает обработку остальных.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/artemshloyda/phototagger/internal/config"
	"github.com/artemshloyda/phototagger/internal/converter"
	"github.com/artemshloyda/phototagger/internal/iptc"
	"github.com/artemshloyda/phototagger/internal/scanner"
	"github.com/artemshloyda/phototagger/internal/tagger"
)

// Pipeline обходит исходные директории и обрабатывает файлы по одному.
type Pipeline struct {
	cfg  *config.Config
	conv *converter.Converter
	logf func(format string, args ...any)

	// existing - снимок имён в выходной директории, сделанный один раз
	// перед обработкой. Файлы, записанные в этом же запуске, в снимок
	// не попадают: это документированное поведение, не ошибка.
	existing map[string]struct{}

	dirIdx  int
	dirHash string
	files   []string
	fileIdx int

	enumFails []*Failure
	cur       *Result
	stats     Stats
	started   bool
	done      bool
}

// New создаёт конвейер для заданной конфигурации.
// Конфигурация после создания не меняется до конца запуска.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		conv:   converter.New(string(cfg.TargetFormat)),
		logf:   func(format string, args ...any) { fmt.Fprintf(os.Stderr, format+"\n", args...) },
		dirIdx: -1,
	}
}

// SetLogf заменяет функцию логирования конвейера.
func (p *Pipeline) SetLogf(logf func(format string, args ...any)) {
	p.logf = logf
}

// Next обрабатывает следующий исходный файл.
// Возвращает false, когда все директории исчерпаны; после этого
// конвейер завершён навсегда.
func (p *Pipeline) Next() bool {
	if p.done {
		return false
	}
	if !p.started {
		p.start()
	}

	for {
		if p.fileIdx >= len(p.files) {
			if !p.advanceDir() {
				p.done = true
				return false
			}
			continue
		}
		file := p.files[p.fileIdx]
		p.fileIdx++

		p.cur = p.process(file)
		p.stats.add(p.cur)
		return true
	}
}

// Result возвращает результат, подготовленный последним вызовом Next.
func (p *Pipeline) Result() *Result {
	return p.cur
}

// Stats возвращает накопленные счётчики запуска.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// EnumerationFailures возвращает сбои перечисления директорий.
// Такие сбои не привязаны к файлам и в результаты не попадают.
func (p *Pipeline) EnumerationFailures() []*Failure {
	return p.enumFails
}

// Run прогоняет конвейер до конца и возвращает все результаты.
func (p *Pipeline) Run() []*Result {
	var results []*Result
	for p.Next() {
		results = append(results, p.Result())
	}
	return results
}

// start делает снимок выходной директории перед первым файлом.
func (p *Pipeline) start() {
	p.started = true

	existing, err := scanner.Snapshot(p.cfg.OutputDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		// Недоступная выходная директория не срывает запуск:
		// считаем её пустой и конвертируем всё заново
		p.logf("⚠️  не удалось прочитать выходную директорию: %v", err)
		p.enumFails = append(p.enumFails, &Failure{Kind: FailEnumeration, Dir: p.cfg.OutputDir, Err: err})
	}
	p.existing = existing
}

// advanceDir переходит к следующей исходной директории.
func (p *Pipeline) advanceDir() bool {
	for p.dirIdx+1 < len(p.cfg.SourceDirs) {
		p.dirIdx++
		dir := p.cfg.SourceDirs[p.dirIdx]

		files, err := scanner.ListFiles(dir)
		if err != nil {
			// Недоступная директория даёт ноль файлов, остальные обрабатываются
			p.logf("⚠️  пропуск директории %s: %v", dir, err)
			p.enumFails = append(p.enumFails, &Failure{Kind: FailEnumeration, Dir: dir, Err: err})
			continue
		}

		p.stats.Dirs++
		p.dirHash = scanner.DirHash(dir)
		p.files = files
		p.fileIdx = 0
		return true
	}
	return false
}

// process конвертирует один файл и переносит его ключевые слова.
func (p *Pipeline) process(file string) *Result {
	srcDir := p.cfg.SourceDirs[p.dirIdx]
	res := &Result{SourceDir: srcDir, SourceFile: file}

	// Имя копии: хэш директории, исходное имя без расширения, целевой формат
	base := strings.TrimSuffix(file, filepath.Ext(file))
	newName := fmt.Sprintf("%s_%s.%s", p.dirHash, base, p.conv.Format())

	_, exists := p.existing[newName]
	if exists && !p.cfg.Reconvert {
		// Копия уже есть: синтезируем запись без перекодирования
		res.Conversion = converter.Record{
			SourcePath:    srcDir,
			ProcessedPath: p.cfg.OutputDir,
			Filename:      newName,
		}
		res.Skipped = true
	} else {
		rec, err := p.conv.Convert(srcDir, file, newName, p.cfg.OutputDir)
		if err != nil {
			p.logf("❌ ошибка конвертации %s: %v", filepath.Join(srcDir, file), err)
			res.Failure = &Failure{Kind: FailConversion, Dir: srcDir, File: file, Err: err}
			return res
		}
		res.Conversion = *rec
		res.Converted = true
	}

	// Теги переносятся для свежих копий и при включённом retag
	if res.Converted || p.cfg.Retag {
		p.transferTags(res, srcDir, file)
	}
	return res
}

// transferTags читает метаданные источника и записывает ключевые слова
// в конвертированную копию. В результате остаётся последняя
// рассмотренная запись.
func (p *Pipeline) transferTags(res *Result, srcDir, file string) {
	records, err := tagger.ReadKeywords(srcDir, file)
	if err != nil {
		p.logf("❌ ошибка чтения метаданных %s: %v", filepath.Join(srcDir, file), err)
		res.Failure = &Failure{Kind: FailMetadataRead, Dir: srcDir, File: file, Err: err}
		return
	}

	outName := res.Conversion.Filename
	for _, rec := range records {
		if len(rec.Tags) == 0 {
			// Пустая запись проходит насквозь, запись в копию не выполняется
			res.Metadata = rec
			continue
		}

		withMark := tagger.WithProvenance(rec)
		res.Metadata = withMark

		if err := tagger.WriteKeywords(p.cfg.OutputDir, outName, withMark); err != nil {
			p.logf("❌ ошибка записи метаданных %s: %v", outName, err)
			res.Failure = &Failure{Kind: FailMetadataWrite, Dir: srcDir, File: file, Err: err}
			continue
		}
		if withMark.Key == iptc.KeywordsKey {
			res.Tagged = true
		}
	}
}

/*
Возможные расширения:
- Пополнение снимка выходной директории именами, записанными в этом же
  запуске (сейчас повторённая в конфигурации директория конвертируется дважды)
- Фильтрация исходных файлов по расширению до попытки декодирования
*/
