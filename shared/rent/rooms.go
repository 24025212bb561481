package rent

import (
	"strconv"
	"strings"

	"github.com/pavitra93/colony-rent-manager/shared/apperrors"
)

// DefaultRoomPrefix is used when a batch is generated without a prefix
const DefaultRoomPrefix = "R"

// MaxRoomBatch is the largest number of rooms generated in one call
const MaxRoomBatch = 1000

// RoomNumbers returns count room numbers prefix{startFrom}..prefix{startFrom+count-1}
func RoomNumbers(count int, prefix string, startFrom int) ([]string, error) {
	if count < 1 {
		return nil, apperrors.Validation("room count must be at least 1, got %d", count)
	}
	if count > MaxRoomBatch {
		return nil, apperrors.Validation("room count must be at most %d, got %d", MaxRoomBatch, count)
	}

	numbers := make([]string, 0, count)
	for i := 0; i < count; i++ {
		numbers = append(numbers, prefix+strconv.Itoa(startFrom+i))
	}
	return numbers, nil
}

// CompareRoomNumbers orders room numbers with digit runs compared numerically,
// so "R2" sorts before "R10". It returns -1, 0 or 1.
func CompareRoomNumbers(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)

		if isDigits(ca) && isDigits(cb) {
			if c := compareNumeric(ca, cb); c != 0 {
				return c
			}
		} else if c := strings.Compare(strings.ToLower(ca), strings.ToLower(cb)); c != 0 {
			return c
		}

		a, b = restA, restB
	}

	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

// nextChunk splits off the leading run of digits or non-digits
func nextChunk(s string) (string, string) {
	digit := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigits(s string) bool {
	return s != "" && isDigit(s[0])
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
