// Package shop - магазин: товары добавляет и удаляет админ, покупка
// списывает цену через леджер с проверкой баланса.
package shop

// Item - товар. File - имя файла во внешнем каталоге, если к товару приложен файл.
type Item struct {
	ID          int64   `db:"item_id"`
	Name        string  `db:"item_name"`
	Price       int64   `db:"item_price"`
	Description string  `db:"item_description"`
	File        *string `db:"item_file"`
}

// Purchase - результат успешной покупки.
type Purchase struct {
	Item    *Item
	Balance int64  // баланс после списания
	Link    string // ссылка на файл товара, если нашёлся
}
