// Package runlock защищает выходную директорию от параллельных запусков.
//
// Конвейер делает снимок выходной директории один раз и дальше пишет в неё
// без координации, поэтому два одновременных запуска над одной директорией
// небезопасны. Блокировка реализована lock-файлом: атомарное создание с
// O_EXCL гарантирует, что файл получит ровно один процесс.
package runlock

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// lockName - имя lock-файла внутри выходной директории.
const lockName = ".phototagger.lock"

// Lock представляет удерживаемую блокировку выходной директории.
type Lock struct {
	path string
}

// Acquire захватывает блокировку выходной директории.
// Если блокировка уже удерживается другим процессом, возвращается ошибка
// с его PID: пользователь сам решает, ждать или удалить устаревший файл.
func Acquire(outputDir string) (*Lock, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать выходную директорию %s: %w", outputDir, err)
	}

	path := filepath.Join(outputDir, lockName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if pid, ok := holderPID(path); ok {
				return nil, fmt.Errorf("выходная директория занята другим запуском (pid %d), lock-файл: %s", pid, path)
			}
			return nil, fmt.Errorf("выходная директория занята другим запуском, lock-файл: %s", path)
		}
		return nil, fmt.Errorf("не удалось создать lock-файл %s: %w", path, err)
	}

	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("не удалось записать lock-файл %s", path)
	}

	return &Lock{path: path}, nil
}

// Release снимает блокировку.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("не удалось удалить lock-файл %s: %w", l.path, err)
	}
	return nil
}

// Path возвращает путь к lock-файлу.
func (l *Lock) Path() string {
	return l.path
}

// holderPID читает PID процесса, удерживающего блокировку.
func holderPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

/*
Возможные расширения:
- Автоматический перехват блокировки, если её держатель уже не запущен
- Таймаут ожидания освобождения вместо немедленной ошибки
*/
