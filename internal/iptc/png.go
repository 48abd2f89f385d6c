package iptc

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
)

// pngSignature - восьмибайтовая сигнатура PNG.
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// rawProfileKeyword - ключ текстового чанка с блоком IIM.
// Соглашение ImageMagick/exiv2 для хранения IPTC в PNG.
const rawProfileKeyword = "Raw profile type iptc"

// decodePNG ищет текстовый чанк с raw-профилем IPTC.
// Поддерживаются несжатый tEXt и сжатый zTXt.
func decodePNG(data []byte) ([]Record, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("не PNG: отсутствует сигнатура")
	}

	i := len(pngSignature)
	for i+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		ctype := string(data[i+4 : i+8])
		dataStart := i + 8
		dataEnd := dataStart + length
		if dataEnd+4 > len(data) {
			return nil, fmt.Errorf("чанк PNG выходит за границы файла")
		}
		chunk := data[dataStart:dataEnd]

		switch ctype {
		case "tEXt":
			if key, text, ok := splitText(chunk); ok && key == rawProfileKeyword {
				iim, err := decodeRawProfile(text)
				if err != nil {
					return nil, err
				}
				return DecodeIIM(iim)
			}
		case "zTXt":
			if key, comp, ok := splitText(chunk); ok && key == rawProfileKeyword {
				if len(comp) < 1 || comp[0] != 0 {
					return nil, fmt.Errorf("неизвестный метод сжатия zTXt")
				}
				text, err := inflate(comp[1:])
				if err != nil {
					return nil, fmt.Errorf("не удалось распаковать zTXt: %w", err)
				}
				iim, err := decodeRawProfile(text)
				if err != nil {
					return nil, err
				}
				return DecodeIIM(iim)
			}
		case "IEND":
			return nil, nil
		}
		i = dataEnd + 4 // пропускаем CRC
	}
	return nil, nil
}

// encodePNG пересобирает поток чанков: старый raw-профиль IPTC
// выбрасывается, новый tEXt чанк вставляется перед IEND.
func encodePNG(data []byte, iim []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("не PNG: отсутствует сигнатура")
	}

	newChunk := buildTextChunk(rawProfileKeyword, encodeRawProfile(iim))

	var out bytes.Buffer
	out.Write(data[:len(pngSignature)])

	inserted := false
	i := len(pngSignature)
	for i+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[i : i+4]))
		ctype := string(data[i+4 : i+8])
		chunkEnd := i + 8 + length + 4
		if chunkEnd > len(data) {
			return nil, fmt.Errorf("чанк PNG выходит за границы файла")
		}

		switch ctype {
		case "tEXt", "zTXt":
			if key, _, ok := splitText(data[i+8 : i+8+length]); ok && key == rawProfileKeyword {
				i = chunkEnd // старый профиль выбрасываем
				continue
			}
			out.Write(data[i:chunkEnd])
		case "IEND":
			out.Write(newChunk)
			inserted = true
			out.Write(data[i:chunkEnd])
		default:
			out.Write(data[i:chunkEnd])
		}
		i = chunkEnd
	}

	if !inserted {
		return nil, fmt.Errorf("не найден чанк IEND")
	}
	out.Write(data[i:])
	return out.Bytes(), nil
}

// splitText разделяет данные текстового чанка на ключ и текст по NUL-байту.
func splitText(chunk []byte) (key string, text []byte, ok bool) {
	idx := bytes.IndexByte(chunk, 0)
	if idx < 0 {
		return "", nil, false
	}
	return string(chunk[:idx]), chunk[idx+1:], true
}

// decodeRawProfile разбирает текст raw-профиля ImageMagick:
// перенос строки, имя профиля, длина, hex-дамп с переносами строк.
func decodeRawProfile(text []byte) ([]byte, error) {
	parts := bytes.SplitN(text, []byte{'\n'}, 4)
	if len(parts) < 4 {
		return nil, fmt.Errorf("неверный формат raw-профиля IPTC")
	}

	hexData := make([]byte, 0, len(parts[3]))
	for _, b := range parts[3] {
		switch b {
		case '\n', '\r', ' ', '\t':
			continue
		default:
			hexData = append(hexData, b)
		}
	}

	raw := make([]byte, hex.DecodedLen(len(hexData)))
	n, err := hex.Decode(raw, hexData)
	if err != nil {
		return nil, fmt.Errorf("повреждённый hex в raw-профиле: %w", err)
	}
	return raw[:n], nil
}

// encodeRawProfile собирает текст raw-профиля в формате ImageMagick:
// hex-дамп блока IIM по 72 символа в строке.
func encodeRawProfile(iim []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "\niptc\n%8d\n", len(iim))

	hexStr := hex.EncodeToString(iim)
	for len(hexStr) > 72 {
		b.WriteString(hexStr[:72])
		b.WriteByte('\n')
		hexStr = hexStr[72:]
	}
	b.WriteString(hexStr)
	b.WriteByte('\n')
	return b.Bytes()
}

// buildTextChunk собирает чанк tEXt с контрольной суммой.
func buildTextChunk(key string, text []byte) []byte {
	payload := make([]byte, 0, len(key)+1+len(text))
	payload = append(payload, key...)
	payload = append(payload, 0)
	payload = append(payload, text...)

	var b bytes.Buffer
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(payload)))
	b.Write(l[:])
	b.WriteString("tEXt")
	b.Write(payload)

	crc := crc32.NewIEEE()
	crc.Write([]byte("tEXt"))
	crc.Write(payload)
	var c [4]byte
	binary.BigEndian.PutUint32(c[:], crc.Sum32())
	b.Write(c[:])
	return b.Bytes()
}

// inflate распаковывает zlib-поток.
func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

/*
Возможные расширения:
- Запись zTXt для больших блоков IIM
- Поддержка чанка iTXt с raw-профилем
- Чтение чанка eXIf для сверки с EXIF данными
*/
