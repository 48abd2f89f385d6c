package pipeline

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/artemshloyda/phototagger/internal/config"
	"github.com/artemshloyda/phototagger/internal/iptc"
	"github.com/artemshloyda/phototagger/internal/tagger"
)

func TestPipeline_ProvenanceMarker(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "processed")

	src := filepath.Join(srcDir, "moon.png")
	writeImage(t, src)
	seedTags(t, src, []string{"DATE: 1974", "PLACE: The Moon"})

	p := newPipeline(t, []string{srcDir}, outDir)
	results := p.Run()

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Failure != nil {
		t.Fatalf("unexpected failure: %v", r.Failure)
	}
	if r.SourceDir != srcDir || r.SourceFile != "moon.png" {
		t.Errorf("source = %s/%s, want %s/moon.png", r.SourceDir, r.SourceFile, srcDir)
	}
	if !r.Converted || !r.Tagged {
		t.Errorf("Converted = %v, Tagged = %v, want both true", r.Converted, r.Tagged)
	}

	want := []string{"DATE: 1974", "PLACE: The Moon", tagger.ProvenanceTag}
	assertTags(t, r.Metadata.Tags, want)

	// Метка переноса дошла до файла копии
	assertTags(t, outTags(t, filepath.Join(outDir, r.Conversion.Filename)), want)
}

func TestPipeline_Idempotence(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	src := filepath.Join(srcDir, "photo.png")
	writeImage(t, src)
	seedTags(t, src, []string{"first"})

	first := newPipeline(t, []string{srcDir}, outDir).Run()
	if len(first) != 1 || !first[0].Converted {
		t.Fatalf("first run: %+v", first)
	}
	outPath := filepath.Join(outDir, first[0].Conversion.Filename)
	before, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read converted copy: %v", err)
	}

	// Второй запуск: копия уже есть, перекодирования и разметки нет
	second := newPipeline(t, []string{srcDir}, outDir).Run()
	if len(second) != 1 {
		t.Fatalf("got %d results, want 1", len(second))
	}
	r := second[0]
	if r.Converted || r.Tagged || !r.Skipped {
		t.Errorf("second run: Converted=%v Tagged=%v Skipped=%v, want skip only", r.Converted, r.Tagged, r.Skipped)
	}

	after, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read converted copy after second run: %v", err)
	}
	if string(before) != string(after) {
		t.Error("converted copy changed on second run")
	}

	names, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("list output dir: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("output dir has %d files, want 1", len(names))
	}
}

func TestPipeline_NameUniqueness(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	outDir := t.TempDir()

	writeImage(t, filepath.Join(dirA, "photo.png"))
	writeImage(t, filepath.Join(dirB, "photo.png"))

	results := newPipeline(t, []string{dirA, dirB}, outDir).Run()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	nameA := results[0].Conversion.Filename
	nameB := results[1].Conversion.Filename
	if nameA == nameB {
		t.Fatalf("identical output names for distinct source dirs: %q", nameA)
	}
	for _, name := range []string{nameA, nameB} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("converted copy %s missing: %v", name, err)
		}
	}
}

func TestPipeline_NoMetadataPassThrough(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeImage(t, filepath.Join(srcDir, "plain.png"))

	results := newPipeline(t, []string{srcDir}, outDir).Run()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]

	if r.Failure != nil {
		t.Fatalf("unexpected failure: %v", r.Failure)
	}
	if r.Metadata.Key != "" || len(r.Metadata.Tags) != 0 {
		t.Errorf("Metadata = %+v, want empty sentinel", r.Metadata)
	}
	if r.Tagged {
		t.Error("Tagged = true, want false: nothing to write")
	}

	// В копию ничего не записано
	records, err := iptc.ReadFile(filepath.Join(outDir, r.Conversion.Filename))
	if err != nil {
		t.Fatalf("read copy metadata: %v", err)
	}
	if records != nil {
		t.Errorf("copy has metadata %v, want none", records)
	}
}

func TestPipeline_RetagWithoutReencode(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	src := filepath.Join(srcDir, "photo.png")
	writeImage(t, src)
	seedTags(t, src, []string{"old"})

	newPipeline(t, []string{srcDir}, outDir).Run()

	// Источник разметили заново, копия уже существует
	seedTags(t, src, []string{"updated"})

	cfg := newConfig([]string{srcDir}, outDir)
	cfg.Retag = true
	p := New(cfg)
	p.SetLogf(t.Logf)
	results := p.Run()

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Converted {
		t.Error("Converted = true, want false: retag must not re-encode")
	}
	if !r.Skipped || !r.Tagged {
		t.Errorf("Skipped = %v, Tagged = %v, want both true", r.Skipped, r.Tagged)
	}

	want := []string{"updated", tagger.ProvenanceTag}
	assertTags(t, outTags(t, filepath.Join(outDir, r.Conversion.Filename)), want)
}

func TestPipeline_FormatFallback(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeImage(t, filepath.Join(srcDir, "photo.png"))

	// Формат вне списка поддерживаемых подменяется jpg, запуск не падает
	cfg := &config.Config{
		SourceDirs:   []string{srcDir},
		OutputDir:    outDir,
		TargetFormat: "bmp",
	}
	p := New(cfg)
	p.SetLogf(t.Logf)
	results := p.Run()

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if r := results[0]; r.Failure != nil || !strings.HasSuffix(r.Conversion.Filename, ".jpg") {
		t.Errorf("Filename = %q (failure %v), want .jpg suffix", r.Conversion.Filename, r.Failure)
	}
}

func TestPipeline_PartialFailure(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	good1 := filepath.Join(srcDir, "a.png")
	writeImage(t, good1)
	seedTags(t, good1, []string{"one"})

	if err := os.WriteFile(filepath.Join(srcDir, "b.png"), []byte("broken image"), 0o644); err != nil {
		t.Fatalf("write corrupt fixture: %v", err)
	}

	good2 := filepath.Join(srcDir, "c.png")
	writeImage(t, good2)
	seedTags(t, good2, []string{"three"})

	p := newPipeline(t, []string{srcDir}, outDir)
	results := p.Run()

	// Битый файл в середине не срывает обработку остальных
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Failure != nil || !results[0].Converted || !results[0].Tagged {
		t.Errorf("first file should convert and tag cleanly: %+v", results[0])
	}
	if results[1].Failure == nil || results[1].Failure.Kind != FailConversion {
		t.Errorf("second file should fail conversion: %+v", results[1].Failure)
	}
	if results[2].Failure != nil || !results[2].Converted || !results[2].Tagged {
		t.Errorf("third file should convert and tag cleanly: %+v", results[2])
	}

	stats := p.Stats()
	if stats.Total != 3 || stats.Converted != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want total 3, converted 2, failed 1", stats)
	}
}

func TestPipeline_Reconvert(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeImage(t, filepath.Join(srcDir, "photo.png"))

	newPipeline(t, []string{srcDir}, outDir).Run()

	cfg := newConfig([]string{srcDir}, outDir)
	cfg.Reconvert = true
	p := New(cfg)
	p.SetLogf(t.Logf)
	results := p.Run()

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if r := results[0]; !r.Converted || r.Skipped {
		t.Errorf("Converted = %v, Skipped = %v, want re-encode", r.Converted, r.Skipped)
	}
}

func TestPipeline_SnapshotNotLive(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()
	writeImage(t, filepath.Join(srcDir, "photo.png"))

	// Одна директория указана дважды: снимок выходной директории не
	// обновляется по ходу запуска, поэтому файл конвертируется оба раза
	results := newPipeline(t, []string{srcDir, srcDir}, outDir).Run()

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if !r.Converted || r.Skipped {
			t.Errorf("pass %d: Converted = %v, Skipped = %v, want fresh conversion", i, r.Converted, r.Skipped)
		}
	}
}

func TestPipeline_MissingSourceDir(t *testing.T) {
	goodDir := t.TempDir()
	outDir := t.TempDir()
	writeImage(t, filepath.Join(goodDir, "photo.png"))

	missing := filepath.Join(t.TempDir(), "nope")
	p := newPipeline(t, []string{missing, goodDir}, outDir)
	results := p.Run()

	// Недоступная директория пропущена, остальные обработаны
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !results[0].Converted {
		t.Errorf("file from healthy dir should convert: %+v", results[0])
	}

	fails := p.EnumerationFailures()
	if len(fails) != 1 || fails[0].Kind != FailEnumeration || fails[0].Dir != missing {
		t.Errorf("EnumerationFailures() = %+v, want one failure for %s", fails, missing)
	}
	if p.Stats().Dirs != 1 {
		t.Errorf("Dirs = %d, want 1", p.Stats().Dirs)
	}
}

func TestPipeline_NonRestartable(t *testing.T) {
	srcDir := t.TempDir()
	writeImage(t, filepath.Join(srcDir, "photo.png"))

	p := newPipeline(t, []string{srcDir}, t.TempDir())
	for p.Next() {
	}

	if p.Next() {
		t.Error("Next() = true after exhaustion")
	}
	if p.Stats().Total != 1 {
		t.Errorf("Total = %d, want 1", p.Stats().Total)
	}
}

func TestPipeline_MetadataReadFailure(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	// BMP декодируется и конвертируется, но ключевые слова из него
	// прочитать нельзя: контейнер без поддержки IPTC
	img := imaging.New(2, 2, color.NRGBA{G: 0xFF, A: 0xFF})
	if err := imaging.Save(img, filepath.Join(srcDir, "photo.bmp")); err != nil {
		t.Fatalf("save bmp fixture: %v", err)
	}

	results := newPipeline(t, []string{srcDir}, outDir).Run()
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if !r.Converted {
		t.Error("Converted = false, want true: conversion itself succeeds")
	}
	if r.Failure == nil || r.Failure.Kind != FailMetadataRead {
		t.Errorf("Failure = %+v, want metadata-read", r.Failure)
	}
	if _, err := os.Stat(filepath.Join(outDir, r.Conversion.Filename)); err != nil {
		t.Errorf("converted copy missing: %v", err)
	}
}

// newConfig собирает минимальную конфигурацию запуска.
func newConfig(srcDirs []string, outDir string) *config.Config {
	return &config.Config{
		SourceDirs:   srcDirs,
		OutputDir:    outDir,
		TargetFormat: config.FormatJPG,
	}
}

// newPipeline создаёт конвейер с логированием в журнал теста.
func newPipeline(t *testing.T, srcDirs []string, outDir string) *Pipeline {
	t.Helper()

	p := New(newConfig(srcDirs, outDir))
	p.SetLogf(t.Logf)
	return p
}

// writeImage сохраняет двухпиксельное тестовое изображение.
func writeImage(t *testing.T, path string) {
	t.Helper()

	img := imaging.New(2, 2, color.NRGBA{R: 0xFF, A: 0xFF})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
}

// seedTags записывает ключевые слова в исходный файл.
func seedTags(t *testing.T, path string, tags []string) {
	t.Helper()

	if err := iptc.WriteFile(path, []iptc.Record{{Key: iptc.KeywordsKey, Tags: tags}}); err != nil {
		t.Fatalf("seed tags: %v", err)
	}
}

// outTags читает ключевые слова из файла копии.
func outTags(t *testing.T, path string) []string {
	t.Helper()

	records, err := iptc.ReadFile(path)
	if err != nil {
		t.Fatalf("read output metadata: %v", err)
	}
	for _, r := range records {
		if r.Key == iptc.KeywordsKey {
			return r.Tags
		}
	}
	return nil
}

// assertTags сравнивает списки ключевых слов с учётом порядка.
func assertTags(t *testing.T, got, want []string) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("tags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}
