package user

import "errors"

var (
	// ErrInvalidTelegramID - невалидный Telegram ID.
	ErrInvalidTelegramID = errors.New("invalid telegram id: must be positive")

	// ErrInvalidFullName - невалидное полное имя.
	ErrInvalidFullName = errors.New("invalid full name: must be 1-100 chars")

	// ErrInvalidGroupCode - невалидный код группы.
	ErrInvalidGroupCode = errors.New("invalid group code: must be 2-30 chars without whitespace")

	// ErrInvalidPosition - позиция в очереди должна начинаться с 1.
	ErrInvalidPosition = errors.New("invalid queue position: must be >= 1")

	// ErrUserNotFound - участник не найден.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists - участник уже существует.
	ErrUserAlreadyExists = errors.New("user already exists")
)
