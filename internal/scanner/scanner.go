// Package scanner отвечает за перечисление файлов в директориях.
package scanner

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
)

// ListFiles возвращает имена обычных файлов (не директорий) в dir.
// Возвращаются только прямые записи директории, без рекурсии.
// Порядок соответствует os.ReadDir (отсортирован по имени).
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать директорию %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// DirHash возвращает sha1-хэш строки пути директории в hex (40 символов).
// Хэш используется как префикс имени копии: файлы с одинаковыми именами из
// разных исходных директорий не перезаписывают друг друга в общей выходной
// директории. Хэш нужен только для уникальности имён, не для криптографии.
func DirHash(dir string) string {
	sum := sha1.Sum([]byte(dir))
	return hex.EncodeToString(sum[:])
}

// Snapshot возвращает множество имён файлов в dir на момент вызова.
// Снимок делается один раз перед обработкой и дальше не обновляется.
// Недоступная директория даёт пустое множество и ошибку для логирования.
func Snapshot(dir string) (map[string]struct{}, error) {
	names, err := ListFiles(dir)
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, err
}

/*
Возможные расширения:
- Добавить поддержку glob-паттернов для фильтрации
- Добавить поддержку exclude-паттернов
- Добавить обход symlinks на файлы
*/
