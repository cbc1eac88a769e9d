package funnel

import (
	"errors"
	"regexp"
)

var (
	ErrEmailRequired = errors.New("email is required")
	ErrEmailInvalid  = errors.New("email is invalid")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// EmailMessage is the inline message shown under the email field.
func EmailMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmailRequired):
		return "Por favor, insira seu e-mail"
	default:
		return "Por favor, insira um e-mail válido"
	}
}

