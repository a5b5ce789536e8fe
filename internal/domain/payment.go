package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

type PaymentMethod string

const (
	PaymentGCash PaymentMethod = "gcash"
	PaymentCard  PaymentMethod = "card"
)

var (
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrAccountTooShort      = errors.New("account number must have at least 4 digits")
)

const maskDots = "••••"

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentGCash:
		return PaymentGCash, nil
	case PaymentCard:
		return PaymentCard, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentGCash:
		return "GCash"
	case PaymentCard:
		return "Card"
	}
	return string(m)
}

// MaskAccount keeps only the last four digits of accountNumber. The result is
// the only form of the account that may be persisted.
func MaskAccount(method PaymentMethod, accountNumber string) (string, error) {
	digits := make([]rune, 0, len(accountNumber))
	for _, r := range accountNumber {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}

	if len(digits) < 4 {
		return "", ErrAccountTooShort
	}

	return method.Label() + " " + maskDots + string(digits[len(digits)-4:]), nil
}
