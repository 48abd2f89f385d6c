// Package watcher реализует режим слежения за исходными директориями.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/artemshloyda/phototagger/internal/config"
)

// Watcher следит за исходными директориями и сообщает об изменениях.
// Каждый сигнал в канале Watch означает «появились новые файлы, нужен
// новый проход обработки». Отдельные файлы не передаются: проход сам
// перечитывает директории и пропускает уже сконвертированное.
type Watcher struct {
	// cfg - конфигурация.
	cfg *config.Config

	// watcher - fsnotify watcher.
	watcher *fsnotify.Watcher

	// debounceTime - время тишины перед запуском прохода.
	// Нужно, чтобы пачка файлов успела полностью записаться.
	debounceTime time.Duration

	// lastEvent - время последнего интересного события.
	lastEvent time.Time

	// dirty - были ли события с момента последнего сигнала.
	dirty bool

	mu sync.Mutex
}

// New создаёт новый Watcher.
func New(cfg *config.Config) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("не удалось создать watcher: %w", err)
	}

	return &Watcher{
		cfg:          cfg,
		watcher:      w,
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// SetDebounceTime устанавливает время debounce.
func (w *Watcher) SetDebounceTime(d time.Duration) {
	w.debounceTime = d
}

// Watch запускает слежение и возвращает канал сигналов «нужен проход».
// Следим только за самими директориями, без поддиректорий: обработка
// тоже не рекурсивная.
func (w *Watcher) Watch(ctx context.Context) (<-chan struct{}, error) {
	for _, dir := range w.cfg.SourceDirs {
		if err := w.watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("не удалось добавить директорию %s: %w", dir, err)
		}
	}

	triggers := make(chan struct{}, 1)

	// Горутина для обработки событий
	go w.processEvents(ctx)

	// Горутина для debounce
	go w.processPending(ctx, triggers)

	return triggers, nil
}

// processEvents обрабатывает события от fsnotify.
func (w *Watcher) processEvents(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Обрабатываем только создание и запись файлов
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if !w.interesting(event.Name) {
				continue
			}

			w.mu.Lock()
			w.lastEvent = time.Now()
			w.dirty = true
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Ошибка watcher: %v\n", err)
		}
	}
}

// interesting проверяет, должно ли событие по этому пути запускать проход.
func (w *Watcher) interesting(path string) bool {
	// Служебные и временные файлы начинаются с точки
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}

	// Если выходная директория совпадает с одной из исходных,
	// собственные копии не должны запускать новые проходы
	if filepath.Dir(path) == filepath.Clean(w.cfg.OutputDir) {
		return false
	}

	// Директории не обрабатываем: слежение не рекурсивное
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// processPending отправляет сигнал после периода тишины.
func (w *Watcher) processPending(ctx context.Context, triggers chan<- struct{}) {
	defer close(triggers)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.settled() {
				continue
			}

			// Если проход уже запрошен, второй сигнал не нужен:
			// проход делает снимок директорий в момент старта
			select {
			case triggers <- struct{}{}:
			default:
			}
		}
	}
}

// settled сообщает, была ли активность и успела ли она утихнуть.
func (w *Watcher) settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty || time.Since(w.lastEvent) < w.debounceTime {
		return false
	}
	w.dirty = false
	return true
}

// Close закрывает watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

/*
Возможные расширения:
- Добавить фильтрацию по расширениям файлов
- Добавить обработку удаления файлов
- Добавить слежение за поддиректориями
*/
