// Package pin validates and hashes the 6-digit confirmation PIN.
package pin

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"ReceiptPoll/internal/apperr"
)

const Length = 6

// Confirm checks both entries and returns the bcrypt hash of the PIN.
func Confirm(pin, confirm string) (string, error) {
	const fn = "pin.Confirm"

	if !valid(pin) || !valid(confirm) {
		return "", fmt.Errorf("%s: %w", fn, apperr.ErrPinFormat)
	}
	if pin != confirm {
		return "", fmt.Errorf("%s: %w", fn, apperr.ErrPinMismatch)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: hash: %w", fn, err)
	}
	return string(hash), nil
}

func valid(pin string) bool {
	if len(pin) != Length {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
