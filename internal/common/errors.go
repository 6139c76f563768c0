// Package common - errors.go определяет ошибки, общие для всех модулей бота.
// Обработчики сравнивают их через errors.Is и показывают пользователю
// понятный текст, а неизвестные ошибки только логируют.
package common

import (
	"errors"
	"fmt"
)

// Ошибки экономики (очки, магазин)
var (
	// ErrInsufficientFunds - на счёте меньше очков, чем нужно для операции
	ErrInsufficientFunds = errors.New("недостаточно очков на счёте")
	// ErrInvalidAmount - сумма или количество не положительные / не распознаны
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound - пользователя нет в ростере (баланс считается нулевым)
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrItemNotFound - товара нет в магазине
	ErrItemNotFound = errors.New("товар не найден")
	// ErrDuplicateItem - товар с таким названием уже есть
	ErrDuplicateItem = errors.New("товар с таким названием уже существует")
	// ErrInvalidItem - пустое название или отрицательная цена
	ErrInvalidItem = errors.New("некорректное название или цена товара")
)

// Ошибки игр
var (
	// ErrInvalidBet - ставка вне лимитов или больше баланса
	ErrInvalidBet = errors.New("некорректная ставка")
	// ErrAlreadyPlaying - у пользователя уже идёт партия
	ErrAlreadyPlaying = errors.New("партия уже идёт")
	// ErrNoActiveSession - активной партии нет
	ErrNoActiveSession = errors.New("нет активной партии")
)

// Ошибки хранилища и фоновых задач
var (
	// ErrStorage - сбой БД (соединение, транзакция, запрос)
	ErrStorage = errors.New("ошибка хранилища")
	// ErrAggregationBusy - предыдущий проход агрегации ещё не закончился
	ErrAggregationBusy = errors.New("агрегация уже выполняется")
)

// Ошибки админки
var (
	// ErrNotAdmin - пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword - неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts - слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired - сессия истекла или не создана
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново: /login <пароль>")
)

// Storage оборачивает ошибку драйвера в ErrStorage, сохраняя исходную причину.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
