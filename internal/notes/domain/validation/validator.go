// Package validation нормализует и проверяет поля отправленной заметки.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxItemLength - максимальная длина одного пункта заметки в символах.
const MaxItemLength = 150

// Имена полей в сообщениях об ошибках.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldText  = "gratitudeText"
)

// Сообщения об ошибках валидации.
const (
	ReasonNameRequired = "Field 'name' is required."
	ReasonEmailInvalid = "Field 'email' must be a valid email address."
	ReasonTextRequired = "Provide at least one gratitude item."
	ReasonItemTooLong  = "Each gratitude item must be at most 150 characters."
)

// ErrInvalidInput - базовая ошибка для всех нарушений валидации.
var ErrInvalidInput = errors.New("invalid input")

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidationError описывает поле, не прошедшее проверку.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap позволяет сравнивать через errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Submission - сырые поля, пришедшие от клиента.
type Submission struct {
	Name  string
	Email string
	Text  string
}

// Canonical - нормализованная запись, готовая к сохранению.
type Canonical struct {
	Name  string
	Email string
	Items []string
}

// Validate проверяет отправку и возвращает нормализованную запись.
// При ошибке частичный результат не возвращается.
func Validate(s Submission) (Canonical, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return Canonical{}, &ValidationError{Field: FieldName, Reason: ReasonNameRequired}
	}

	email, err := NormalizeEmail(s.Email)
	if err != nil {
		return Canonical{}, err
	}

	items, err := SplitItems(s.Text)
	if err != nil {
		return Canonical{}, err
	}

	return Canonical{Name: name, Email: email, Items: items}, nil
}

// NormalizeEmail обрезает пробелы, проверяет формат и приводит адрес к нижнему регистру.
func NormalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if !emailPattern.MatchString(email) {
		return "", &ValidationError{Field: FieldEmail, Reason: ReasonEmailInvalid}
	}
	return strings.ToLower(email), nil
}

// SplitItems разбивает текст на пункты по строкам, отбрасывая пустые.
func SplitItems(text string) ([]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > MaxItemLength {
			return nil, &ValidationError{Field: FieldText, Reason: ReasonItemTooLong}
		}
		items = append(items, line)
	}

	if len(items) == 0 {
		return nil, &ValidationError{Field: FieldText, Reason: ReasonTextRequired}
	}
	return items, nil
}
