package amount

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid amount")

// MaxDigits is the largest digit limit Parse accepts; wider values would
// not fit in an int64.
const MaxDigits = 18

// Parse validates a top-up amount: ASCII digits only, strictly positive,
// and at most maxDigits significant digits (leading zeros do not count).
func Parse(s string, maxDigits int) (int64, error) {
	if maxDigits <= 0 || maxDigits > MaxDigits {
		return 0, fmt.Errorf("max digits must be 1..%d (got %d)", MaxDigits, maxDigits)
	}
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrInvalid)
	}
	if !IsDigits(s) {
		return 0, fmt.Errorf("%w: %q must contain digits only", ErrInvalid, s)
	}
	significant := strings.TrimLeft(s, "0")
	if significant == "" {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalid)
	}
	if len(significant) > maxDigits {
		return 0, fmt.Errorf("%w: amount length %d exceeds %d", ErrInvalid, len(significant), maxDigits)
	}
	v, err := strconv.ParseInt(significant, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return v, nil
}

// Add returns a+b, failing instead of wrapping on overflow.
func Add(a, b int64) (int64, error) {
	if b > 0 && a > (1<<63-1)-b {
		return 0, fmt.Errorf("%w: wallet overflow", ErrInvalid)
	}
	return a + b, nil
}

func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
