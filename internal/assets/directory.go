// Package assets - каталог внешних файлов (картинки наград гачи, файлы товаров).
// Ядро видит только интерфейс Directory; реализация на Google Drive и
// кэш в Redis подключаются в app.
package assets

import (
	"context"
	"fmt"
)

// Entry - файл из каталога. Folder - имя родительской папки ("5 Stars", ...).
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Link   string `json:"link"`
	Folder string `json:"folder"`
}

// Directory - только чтение: листинг и поиск файла по имени.
type Directory interface {
	List(ctx context.Context) ([]Entry, error)
	Exists(ctx context.Context, name string) (Entry, bool, error)
}

// RarityFolder - папка наград для редкости: "5 Stars".
func RarityFolder(rarity int) string {
	return fmt.Sprintf("%d Stars", rarity)
}

// InFolder отбирает файлы из папки folder.
func InFolder(entries []Entry, folder string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Folder == folder {
			out = append(out, e)
		}
	}
	return out
}

// find ищет файл по имени в листинге.
func find(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Static - каталог в памяти: для разработки без Drive и для тестов.
type Static struct {
	entries []Entry
}

// NewStatic создаёт каталог из готового списка.
func NewStatic(entries ...Entry) *Static {
	return &Static{entries: entries}
}

func (s *Static) List(_ context.Context) ([]Entry, error) {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Static) Exists(_ context.Context, name string) (Entry, bool, error) {
	e, ok := find(s.entries, name)
	return e, ok, nil
}
