package iptc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeDecodeIIM(t *testing.T) {
	records := []Record{
		{Key: KeywordsKey, Tags: []string{"landscape", "vacation", "Москва"}},
		{Key: "Iptc.Application2.Caption", Tags: []string{"test caption"}},
		{Key: "Iptc.Application2.Byline", Tags: []string{"tester"}},
	}

	encoded := EncodeIIM(records)

	// Блок начинается с датасета кодировки 1:90 (UTF-8, ESC % G)
	wantPrefix := []byte{0x1C, 0x01, 0x5A, 0x00, 0x03, 0x1B, 0x25, 0x47}
	if !bytes.HasPrefix(encoded, wantPrefix) {
		t.Fatalf("encoded IIM should start with charset dataset, got % x", encoded[:8])
	}

	decoded, err := DecodeIIM(encoded)
	if err != nil {
		t.Fatalf("DecodeIIM() error = %v", err)
	}
	assertRecords(t, decoded, records)
}

func TestDecodeIIM_Empty(t *testing.T) {
	records, err := DecodeIIM(nil)
	if err != nil {
		t.Fatalf("DecodeIIM(nil) error = %v", err)
	}
	if records != nil {
		t.Errorf("DecodeIIM(nil) = %v, want nil", records)
	}
}

func TestDecodeIIM_UnknownDataset(t *testing.T) {
	// Датасет 2:192 не входит в таблицу имён
	data := []byte{0x1C, 0x02, 0xC0, 0x00, 0x03, 'a', 'b', 'c'}

	records, err := DecodeIIM(data)
	if err != nil {
		t.Fatalf("DecodeIIM() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Key != "Iptc.Application2.0x00c0" {
		t.Errorf("Key = %q, want %q", records[0].Key, "Iptc.Application2.0x00c0")
	}
}

func TestDecodeIIM_ExtendedDataset(t *testing.T) {
	// Длина со взведённым старшим битом означает расширенный датасет
	data := []byte{0x1C, 0x02, 0x19, 0x80, 0x04}

	if _, err := DecodeIIM(data); err == nil {
		t.Error("DecodeIIM() should fail on extended dataset")
	}
}

func TestEncodeIIM_SkipsUnknownKeys(t *testing.T) {
	records := []Record{
		{Key: "Iptc.Application2.0x00c0", Tags: []string{"opaque"}},
		{Key: KeywordsKey, Tags: []string{"kept"}},
	}

	decoded, err := DecodeIIM(EncodeIIM(records))
	if err != nil {
		t.Fatalf("DecodeIIM() error = %v", err)
	}
	assertRecords(t, decoded, []Record{{Key: KeywordsKey, Tags: []string{"kept"}}})
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, KindJPEG},
		{"png", pngSignature, KindPNG},
		{"tiff little endian", []byte{'I', 'I', 0x2A, 0x00}, KindTIFF},
		{"tiff big endian", []byte{'M', 'M', 0x00, 0x2A}, KindTIFF},
		{"gif", []byte("GIF89a"), KindUnknown},
		{"empty", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.data); got != tt.want {
				t.Errorf("DetectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJPEGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.jpg")
	if err := os.WriteFile(path, buildJPEG(nil), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	// Файл без блока IPTC читается как пустой
	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %v", records)
	}

	want := []Record{{Key: KeywordsKey, Tags: []string{"DATE: 1974", "PLACE: The Moon"}}}
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() after write error = %v", err)
	}
	assertRecords(t, got, want)

	// APP13 должен стоять до первого не-APPn сегмента
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	psIdx := bytes.Index(out, psHeader)
	dqtIdx := bytes.Index(out, []byte{0xFF, 0xDB})
	if psIdx < 0 || dqtIdx < 0 || psIdx > dqtIdx {
		t.Errorf("APP13 at %d should precede DQT at %d", psIdx, dqtIdx)
	}
}

func TestJPEGPreservesForeignResources(t *testing.T) {
	foreign := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	oldIIM := EncodeIIM([]Record{{Key: KeywordsKey, Tags: []string{"stale"}}})

	var resources bytes.Buffer
	resources.WriteString("8BIM")
	resources.Write([]byte{0x03, 0xED}) // ресурс разрешения
	resources.Write([]byte{0x00, 0x00})
	_ = binary.Write(&resources, binary.BigEndian, uint32(len(foreign)))
	resources.Write(foreign)
	resources.Write(buildIPTCResource(oldIIM))

	app13 := append(append([]byte{}, psHeader...), resources.Bytes()...)
	src := buildJPEG(app13)

	out, err := encodeJPEG(src, EncodeIIM([]Record{{Key: KeywordsKey, Tags: []string{"fresh"}}}))
	if err != nil {
		t.Fatalf("encodeJPEG() error = %v", err)
	}

	if !bytes.Contains(out, foreign) {
		t.Error("foreign Photoshop resource was dropped")
	}
	if bytes.Contains(out, []byte("stale")) {
		t.Error("old IIM block survived the rewrite")
	}
	if bytes.Count(out, psHeader) != 1 {
		t.Errorf("got %d APP13 segments, want 1", bytes.Count(out, psHeader))
	}

	records, err := decodeJPEG(out)
	if err != nil {
		t.Fatalf("decodeJPEG() error = %v", err)
	}
	assertRecords(t, records, []Record{{Key: KeywordsKey, Tags: []string{"fresh"}}})
}

func TestPNGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.png")
	if err := os.WriteFile(path, buildPNG(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	want := []Record{{Key: KeywordsKey, Tags: []string{"пейзаж", "2024"}}}
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	assertRecords(t, got, want)

	// Пиксельные данные не тронуты
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("png.Decode() after write error = %v", err)
	}
	r, _, _, a := img.At(0, 0).RGBA()
	if r != 0xFFFF || a != 0xFFFF {
		t.Errorf("pixel (0,0) = r=%04x a=%04x, want red opaque", r, a)
	}
}

func TestPNGReplacesExistingProfile(t *testing.T) {
	src := buildPNG(t)

	first, err := encodePNG(src, EncodeIIM([]Record{{Key: KeywordsKey, Tags: []string{"old"}}}))
	if err != nil {
		t.Fatalf("first encodePNG() error = %v", err)
	}
	second, err := encodePNG(first, EncodeIIM([]Record{{Key: KeywordsKey, Tags: []string{"new"}}}))
	if err != nil {
		t.Fatalf("second encodePNG() error = %v", err)
	}

	if n := bytes.Count(second, []byte(rawProfileKeyword)); n != 1 {
		t.Errorf("got %d raw profiles, want 1", n)
	}

	records, err := decodePNG(second)
	if err != nil {
		t.Fatalf("decodePNG() error = %v", err)
	}
	assertRecords(t, records, []Record{{Key: KeywordsKey, Tags: []string{"new"}}})
}

func TestPNGReadsZTXt(t *testing.T) {
	want := []Record{{Key: KeywordsKey, Tags: []string{"compressed"}}}
	profile := encodeRawProfile(EncodeIIM(want))

	var comp bytes.Buffer
	zw := zlib.NewWriter(&comp)
	if _, err := zw.Write(profile); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}

	chunkData := append([]byte(rawProfileKeyword+"\x00\x00"), comp.Bytes()...)
	chunk := buildPNGChunk("zTXt", chunkData)

	data := buildPNG(t)
	insertAt := len(data) - 12 // перед IEND
	withProfile := append(append(append([]byte{}, data[:insertAt]...), chunk...), data[insertAt:]...)

	records, err := decodePNG(withProfile)
	if err != nil {
		t.Fatalf("decodePNG() error = %v", err)
	}
	assertRecords(t, records, want)
}

func TestTIFFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.tif")
	if err := os.WriteFile(path, buildTIFF(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	want := []Record{{Key: KeywordsKey, Tags: []string{"archive", "scan"}}}
	if err := WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	assertRecords(t, got, want)

	// Существующие теги остаются читаемыми по старым смещениям
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	model := findTIFFValue(t, out, 0x0110)
	if !bytes.Equal(model, []byte("TestCam\x00")) {
		t.Errorf("Model tag = %q, want %q", model, "TestCam\x00")
	}

	// Заголовок указывает на новый IFD в дописанной части файла
	h, err := parseTIFFHeader(out)
	if err != nil {
		t.Fatalf("parseTIFFHeader() error = %v", err)
	}
	if int(h.ifd) <= len(buildTIFF()) {
		t.Errorf("IFD offset %d should point past the original file", h.ifd)
	}
}

func TestTIFFRewriteKeepsSingleIPTCTag(t *testing.T) {
	data := buildTIFF()

	var err error
	for _, tag := range []string{"first", "second"} {
		data, err = encodeTIFF(data, EncodeIIM([]Record{{Key: KeywordsKey, Tags: []string{tag}}}))
		if err != nil {
			t.Fatalf("encodeTIFF(%s) error = %v", tag, err)
		}
	}

	if n := countTIFFTag(t, data, tagIPTC); n != 1 {
		t.Errorf("got %d IPTC tags in IFD, want 1", n)
	}

	records, err := decodeTIFF(data)
	if err != nil {
		t.Fatalf("decodeTIFF() error = %v", err)
	}
	assertRecords(t, records, []Record{{Key: KeywordsKey, Tags: []string{"second"}}})
}

func TestReadFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.gif")
	if err := os.WriteFile(path, []byte("GIF89a..."), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile() should fail on unsupported container")
	}
	if err := WriteFile(path, []Record{{Key: KeywordsKey, Tags: []string{"x"}}}); err == nil {
		t.Error("WriteFile() should fail on unsupported container")
	}
}

// assertRecords сравнивает записи по ключам и значениям.
func assertRecords(t *testing.T, got, want []Record) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d: %#v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Key != want[i].Key {
			t.Errorf("record %d: Key = %q, want %q", i, got[i].Key, want[i].Key)
		}
		if len(got[i].Tags) != len(want[i].Tags) {
			t.Errorf("record %d: got %d tags, want %d", i, len(got[i].Tags), len(want[i].Tags))
			continue
		}
		for j := range want[i].Tags {
			if got[i].Tags[j] != want[i].Tags[j] {
				t.Errorf("record %d tag %d = %q, want %q", i, j, got[i].Tags[j], want[i].Tags[j])
			}
		}
	}
}

// buildJPEG собирает минимальный поток сегментов JPEG.
// Непустой app13 вставляется после APP0.
func buildJPEG(app13 []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8}) // SOI

	jfif := []byte("JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	buf.Write([]byte{0xFF, 0xE0})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(jfif)+2))
	buf.Write(jfif)

	if len(app13) > 0 {
		buf.Write([]byte{0xFF, 0xED})
		_ = binary.Write(&buf, binary.BigEndian, uint16(len(app13)+2))
		buf.Write(app13)
	}

	buf.Write([]byte{0xFF, 0xDB, 0x00, 0x04, 0x00, 0x01}) // урезанный DQT
	buf.Write([]byte{0xFF, 0xDA, 0x00, 0x02})             // SOS
	buf.Write([]byte{0x12, 0x34, 0x56})                   // сжатые данные
	buf.Write([]byte{0xFF, 0xD9})                         // EOI
	return buf.Bytes()
}

// buildPNG кодирует однопиксельный красный PNG.
func buildPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0xFF, A: 0xFF})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func buildPNGChunk(chunkType string, data []byte) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(chunkType)
	b.Write(data)
	crc := crc32.ChecksumIEEE(append([]byte(chunkType), data...))
	_ = binary.Write(&b, binary.BigEndian, crc)
	return b.Bytes()
}

// buildTIFF собирает минимальный little-endian TIFF с двумя тегами:
// ImageWidth (inline SHORT) и Model (ASCII по смещению 38).
func buildTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{'I', 'I', 0x2A, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))

	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0100)) // ImageWidth
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(3))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(1))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110)) // Model
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	return tiff.Bytes()
}

// findTIFFValue возвращает байты значения тега из актуального IFD.
func findTIFFValue(t *testing.T, data []byte, tag uint16) []byte {
	t.Helper()

	h, err := parseTIFFHeader(data)
	if err != nil {
		t.Fatalf("parseTIFFHeader() error = %v", err)
	}
	off := int(h.ifd)
	n := int(h.bo.Uint16(data[off : off+2]))
	for e := 0; e < n; e++ {
		entry := off + 2 + e*12
		if h.bo.Uint16(data[entry:entry+2]) != tag {
			continue
		}
		typ := h.bo.Uint16(data[entry+2 : entry+4])
		size := int(h.bo.Uint32(data[entry+4:entry+8])) * typeSize(typ)
		if size <= 4 {
			return data[entry+8 : entry+8+size]
		}
		vo := int(h.bo.Uint32(data[entry+8 : entry+12]))
		return data[vo : vo+size]
	}
	t.Fatalf("tag 0x%04x not found in IFD", tag)
	return nil
}

// countTIFFTag считает записи с данным тегом в актуальном IFD.
func countTIFFTag(t *testing.T, data []byte, tag uint16) int {
	t.Helper()

	h, err := parseTIFFHeader(data)
	if err != nil {
		t.Fatalf("parseTIFFHeader() error = %v", err)
	}
	off := int(h.ifd)
	n := int(h.bo.Uint16(data[off : off+2]))
	count := 0
	for e := 0; e < n; e++ {
		entry := off + 2 + e*12
		if h.bo.Uint16(data[entry:entry+2]) == tag {
			count++
		}
	}
	return count
}
