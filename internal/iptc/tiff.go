package iptc

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// tagIPTC - тег TIFF с блоком IIM (33723, IPTC-NAA).
const tagIPTC = 0x83BB

// typeUndefined - тип значения UNDEFINED (сырые байты).
const typeUndefined = 7

// tiffHeader описывает заголовок TIFF файла.
type tiffHeader struct {
	// bo - порядок байт файла (II или MM).
	bo binary.ByteOrder

	// ifd - смещение первого IFD от начала файла.
	ifd uint32
}

// parseTIFFHeader разбирает восьмибайтовый заголовок TIFF.
func parseTIFFHeader(data []byte) (*tiffHeader, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("слишком короткий TIFF файл")
	}

	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("не TIFF: неизвестный порядок байт")
	}

	if bo.Uint16(data[2:4]) != 42 {
		return nil, fmt.Errorf("не TIFF: отсутствует магическое число 42")
	}
	return &tiffHeader{bo: bo, ifd: bo.Uint32(data[4:8])}, nil
}

// typeSize возвращает размер одного значения данного типа TIFF в байтах.
func typeSize(typ uint16) int {
	switch typ {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12: // RATIONAL, SRATIONAL, DOUBLE
		return 8
	default:
		return 1
	}
}

// decodeTIFF ищет тег 33723 в первом IFD и разбирает его как блок IIM.
// Значение трактуется как сырые байты независимо от заявленного типа:
// старые редакторы записывали тег массивом LONG, но байты лежат как есть.
func decodeTIFF(data []byte) ([]Record, error) {
	h, err := parseTIFFHeader(data)
	if err != nil {
		return nil, err
	}

	off := int(h.ifd)
	if off < 8 || off+2 > len(data) {
		return nil, fmt.Errorf("IFD выходит за границы файла")
	}
	n := int(h.bo.Uint16(data[off : off+2]))

	for e := 0; e < n; e++ {
		entry := off + 2 + e*12
		if entry+12 > len(data) {
			return nil, fmt.Errorf("запись IFD выходит за границы файла")
		}
		if h.bo.Uint16(data[entry:entry+2]) != tagIPTC {
			continue
		}

		typ := h.bo.Uint16(data[entry+2 : entry+4])
		count := int(h.bo.Uint32(data[entry+4 : entry+8]))
		size := count * typeSize(typ)

		var val []byte
		if size <= 4 {
			val = data[entry+8 : entry+8+size]
		} else {
			vo := int(h.bo.Uint32(data[entry+8 : entry+12]))
			if vo < 8 || vo+size > len(data) {
				return nil, fmt.Errorf("значение тега IPTC выходит за границы файла")
			}
			val = data[vo : vo+size]
		}
		return DecodeIIM(val)
	}
	return nil, nil
}

// encodeTIFF записывает блок IIM без переупаковки файла: данные и новый
// первый IFD дописываются в конец, заголовок перенаправляется на него.
// Абсолютные смещения существующих значений при этом остаются валидными.
func encodeTIFF(data []byte, iim []byte) ([]byte, error) {
	h, err := parseTIFFHeader(data)
	if err != nil {
		return nil, err
	}

	off := int(h.ifd)
	if off < 8 || off+2 > len(data) {
		return nil, fmt.Errorf("IFD выходит за границы файла")
	}
	n := int(h.bo.Uint16(data[off : off+2]))

	nextOff := off + 2 + n*12
	if nextOff+4 > len(data) {
		return nil, fmt.Errorf("IFD выходит за границы файла")
	}
	next := h.bo.Uint32(data[nextOff : nextOff+4]) // сохраняем цепочку IFD

	out := make([]byte, len(data), len(data)+len(iim)+2+(n+1)*12+8)
	copy(out, data)
	if len(out)%2 != 0 {
		out = append(out, 0) // значения TIFF выровнены по чётному смещению
	}

	// Данные IPTC в конец файла
	iptcOff := uint32(len(out))
	out = append(out, iim...)
	if len(out)%2 != 0 {
		out = append(out, 0)
	}

	// Новый IFD: старые записи без 33723 плюс наша, по возрастанию тега
	type ifdEntry struct {
		tag uint16
		raw [12]byte
	}
	var entries []ifdEntry
	for e := 0; e < n; e++ {
		pos := off + 2 + e*12
		if pos+12 > len(data) {
			return nil, fmt.Errorf("запись IFD выходит за границы файла")
		}
		tag := h.bo.Uint16(data[pos : pos+2])
		if tag == tagIPTC {
			continue
		}
		en := ifdEntry{tag: tag}
		copy(en.raw[:], data[pos:pos+12])
		entries = append(entries, en)
	}

	ours := ifdEntry{tag: tagIPTC}
	h.bo.PutUint16(ours.raw[0:2], tagIPTC)
	h.bo.PutUint16(ours.raw[2:4], typeUndefined)
	h.bo.PutUint32(ours.raw[4:8], uint32(len(iim)))
	if len(iim) <= 4 {
		copy(ours.raw[8:12], iim)
	} else {
		h.bo.PutUint32(ours.raw[8:12], iptcOff)
	}
	entries = append(entries, ours)
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	newIFD := uint32(len(out))
	var cnt [2]byte
	h.bo.PutUint16(cnt[:], uint16(len(entries)))
	out = append(out, cnt[:]...)
	for _, en := range entries {
		out = append(out, en.raw[:]...)
	}
	var nx [4]byte
	h.bo.PutUint32(nx[:], next)
	out = append(out, nx[:]...)

	// Перенаправляем заголовок на новый IFD
	h.bo.PutUint32(out[4:8], newIFD)
	return out, nil
}

/*
Возможные расширения:
- Уплотнение файла после многократных перезаписей (сборка мусора IFD)
- Обновление тега 34377 (Photoshop IRB), если он присутствует
*/
