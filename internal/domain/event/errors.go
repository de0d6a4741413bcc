package event

import "errors"

var (
	// ErrMissingCategory - событие обязано ссылаться на категорию.
	ErrMissingCategory = errors.New("event category id is required")

	// ErrInvalidGroupCode - невалидный код группы.
	ErrInvalidGroupCode = errors.New("invalid group code")

	// ErrInvalidOccurredOn - время проведения обязательно.
	ErrInvalidOccurredOn = errors.New("occurred-on time is required")

	// ErrInvalidPreference - неизвестное пожелание.
	ErrInvalidPreference = errors.New("invalid preference: must be start, end or none")

	// ErrAlreadyEnrolled - участник уже записан на событие.
	ErrAlreadyEnrolled = errors.New("participant already enrolled")

	// ErrNotEnrolled - участник не записан на событие.
	ErrNotEnrolled = errors.New("participant is not enrolled")

	// ErrAlreadyFormed - очередь уже сформирована, запись закрыта.
	ErrAlreadyFormed = errors.New("queue is already formed")

	// ErrNotFormed - очередь ещё не сформирована.
	ErrNotFormed = errors.New("queue is not formed yet")

	// ErrEventNotFound - событие не найдено.
	ErrEventNotFound = errors.New("event not found")

	// ErrEventAlreadyExists - событие уже существует.
	ErrEventAlreadyExists = errors.New("event already exists")
)
