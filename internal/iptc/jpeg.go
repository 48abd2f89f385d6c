package iptc

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP13 = 0xED
)

// psHeader - сигнатура сегмента APP13 с ресурсами Photoshop.
var psHeader = []byte("Photoshop 3.0\x00")

// resourceIPTC - идентификатор ресурса Photoshop с блоком IIM.
const resourceIPTC = 0x0404

// decodeJPEG ищет блок IIM в сегментах APP13 до начала сжатых данных.
func decodeJPEG(data []byte) ([]Record, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("не JPEG: отсутствует маркер SOI")
	}

	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("повреждённая структура сегментов JPEG")
		}
		marker := data[i+1]

		// Маркеры без тела
		if marker == markerSOI || marker == markerEOI || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if marker == markerSOS {
			break // дальше идут сжатые данные
		}

		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if length < 2 || i+2+length > len(data) {
			return nil, fmt.Errorf("сегмент JPEG выходит за границы файла")
		}

		if marker == markerAPP13 {
			body := data[i+4 : i+2+length]
			if bytes.HasPrefix(body, psHeader) {
				if iim := findResource(body[len(psHeader):], resourceIPTC); iim != nil {
					return DecodeIIM(iim)
				}
			}
		}
		i += 2 + length
	}
	return nil, nil
}

// findResource ищет ресурс Photoshop с заданным идентификатором
// в последовательности блоков 8BIM.
func findResource(data []byte, id uint16) []byte {
	i := 0
	for i+12 <= len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			return nil
		}
		resID := binary.BigEndian.Uint16(data[i+4 : i+6])

		// Pascal-строка имени, выровненная до чётной длины
		nameSize := int(data[i+6]) + 1
		if nameSize%2 != 0 {
			nameSize++
		}
		i += 6 + nameSize
		if i+4 > len(data) {
			return nil
		}

		size := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if i+size > len(data) {
			return nil
		}
		if resID == id {
			return data[i : i+size]
		}

		i += size
		if size%2 != 0 {
			i++ // данные ресурса выровнены до чётной длины
		}
	}
	return nil
}

// encodeJPEG пересобирает поток сегментов, заменяя существующий блок IIM
// или вставляя новый APP13 перед первым не-APPn сегментом.
func encodeJPEG(data []byte, iim []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("не JPEG: отсутствует маркер SOI")
	}

	ours := buildIPTCResource(iim)

	var out bytes.Buffer
	out.Write(data[:2])

	inserted := false
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("повреждённая структура сегментов JPEG")
		}
		marker := data[i+1]
		if marker == markerSOS {
			break
		}
		if marker == markerSOI || marker == markerEOI || (marker >= 0xD0 && marker <= 0xD7) {
			out.Write(data[i : i+2])
			i += 2
			continue
		}

		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if length < 2 || i+2+length > len(data) {
			return nil, fmt.Errorf("сегмент JPEG выходит за границы файла")
		}
		segEnd := i + 2 + length
		body := data[i+4:segEnd]

		switch {
		case marker == markerAPP13 && bytes.HasPrefix(body, psHeader):
			// Пересобираем существующий APP13: чужие ресурсы сохраняются,
			// старый блок IIM выбрасывается
			kept := foreignResources(body[len(psHeader):])
			if !inserted {
				kept = append(kept, ours...)
				inserted = true
			}
			if len(kept) > 0 {
				seg, err := buildAPP13(kept)
				if err != nil {
					return nil, err
				}
				out.Write(seg)
			}
		case !inserted && (marker < markerAPP0 || marker > 0xEF):
			// Первый не-APPn сегмент: вставляем APP13 перед ним
			seg, err := buildAPP13(ours)
			if err != nil {
				return nil, err
			}
			out.Write(seg)
			inserted = true
			out.Write(data[i:segEnd])
		default:
			out.Write(data[i:segEnd])
		}
		i = segEnd
	}

	if !inserted {
		seg, err := buildAPP13(ours)
		if err != nil {
			return nil, err
		}
		out.Write(seg)
	}
	out.Write(data[i:]) // SOS и сжатые данные без изменений
	return out.Bytes(), nil
}

// foreignResources возвращает все ресурсы Photoshop кроме блока IIM 0x0404.
func foreignResources(resources []byte) []byte {
	var kept []byte

	i := 0
	for i+12 <= len(resources) {
		if !bytes.Equal(resources[i:i+4], []byte("8BIM")) {
			break
		}
		start := i
		resID := binary.BigEndian.Uint16(resources[i+4 : i+6])

		nameSize := int(resources[i+6]) + 1
		if nameSize%2 != 0 {
			nameSize++
		}
		i += 6 + nameSize
		if i+4 > len(resources) {
			break
		}
		size := int(binary.BigEndian.Uint32(resources[i : i+4]))
		i += 4
		if i+size > len(resources) {
			break
		}
		i += size
		if size%2 != 0 {
			i++
		}

		if resID != resourceIPTC {
			kept = append(kept, resources[start:i]...)
		}
	}
	return kept
}

// buildIPTCResource упаковывает блок IIM в ресурс Photoshop 8BIM 0x0404.
func buildIPTCResource(iim []byte) []byte {
	var b bytes.Buffer
	b.WriteString("8BIM")
	var id [2]byte
	binary.BigEndian.PutUint16(id[:], resourceIPTC)
	b.Write(id[:])
	b.Write([]byte{0x00, 0x00}) // пустое Pascal-имя, выровненное до чётной длины
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(iim)))
	b.Write(size[:])
	b.Write(iim)
	if len(iim)%2 != 0 {
		b.WriteByte(0x00)
	}
	return b.Bytes()
}

// buildAPP13 оборачивает ресурсы Photoshop в сегмент APP13.
func buildAPP13(resources []byte) ([]byte, error) {
	bodyLen := len(psHeader) + len(resources)
	if bodyLen+2 > 0xFFFF {
		return nil, fmt.Errorf("блок IPTC слишком велик для сегмента APP13: %d байт", bodyLen)
	}

	var b bytes.Buffer
	b.WriteByte(0xFF)
	b.WriteByte(markerAPP13)
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(bodyLen+2))
	b.Write(l[:])
	b.Write(psHeader)
	b.Write(resources)
	return b.Bytes(), nil
}

/*
Возможные расширения:
- Разбиение больших блоков IIM на несколько сегментов APP13
- Сохранение ресурса дайджеста 0x0425 в согласованном виде
*/
