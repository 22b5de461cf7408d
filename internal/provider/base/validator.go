package base

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{12,19}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

// ValidateCardNumber normalizes and validates a primary account number.
func ValidateCardNumber(number string) (string, error) {
	normalized := strings.ReplaceAll(number, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	if !cardNumberPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid card number")
	}
	return normalized, nil
}

// ValidateExpiration checks an expirationMonth/expirationYear pair.
func ValidateExpiration(month, year string) error {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return fmt.Errorf("invalid expiration month: %s", month)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("invalid expiration year: %s", year)
	}
	if y < 100 {
		y += 2000
	}
	now := time.Now()
	if y < now.Year() || (y == now.Year() && m < int(now.Month())) {
		return fmt.Errorf("card expired: %s/%s", month, year)
	}
	return nil
}

// ValidateCVV checks a card security code.
func ValidateCVV(cvv string) error {
	if !cvvPattern.MatchString(cvv) {
		return fmt.Errorf("invalid cvv")
	}
	return nil
}

// ValidateAmount checks a decimal amount string (e.g. "12.50").
func ValidateAmount(amount string) error {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %s", amount)
	}
	if f <= 0 {
		return fmt.Errorf("amount must be positive: %s", amount)
	}
	return nil
}
