package notify

import (
	"strconv"
	"strings"
)

// Embed colors
const (
	ColorGift = 0xF47FFF
	ColorInfo = 0x3498DB
)

// FormatYen formats a whole-yen amount with thousands separators, e.g. ¥12,000
func FormatYen(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	str := strconv.FormatInt(amount, 10)
	n := len(str)

	var result strings.Builder
	result.WriteString(sign + "¥")
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}
