package category

import "errors"

var (
	// ErrInvalidSubjectName - невалидное название предмета.
	ErrInvalidSubjectName = errors.New("invalid subject name: must be 1-100 chars")

	// ErrInvalidGroupCode - невалидный код группы.
	ErrInvalidGroupCode = errors.New("invalid group code")

	// ErrInvalidCutoff - позиция отсечения должна быть положительной.
	ErrInvalidCutoff = errors.New("invalid cutoff position: must be >= 1")

	// ErrCategoryNotFound - категория не найдена.
	ErrCategoryNotFound = errors.New("event category not found")

	// ErrCategoryAlreadyExists - категория уже существует.
	ErrCategoryAlreadyExists = errors.New("event category already exists")
)
