package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const thousandsSeparator = ","

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0b"
	}
	units := []string{"b", "kb", "mb", "gb", "tb", "pb"}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(units)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%db", bytes)
	}
	if value < 10 {
		formatted := fmt.Sprintf("%.1f", value)
		formatted = strings.TrimSuffix(formatted, ".0")
		return formatted + units[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}

// FormatCount renders a character or token count with thousands separators, e.g. 12,345.
func FormatCount(count int) string {
	if count < 0 {
		return "-" + FormatCount(-count)
	}
	digits := strconv.Itoa(count)
	if len(digits) <= 3 {
		return digits
	}
	var builder strings.Builder
	leading := len(digits) % 3
	if leading > 0 {
		builder.WriteString(digits[:leading])
	}
	for index := leading; index < len(digits); index += 3 {
		if builder.Len() > 0 {
			builder.WriteString(thousandsSeparator)
		}
		builder.WriteString(digits[index : index+3])
	}
	return builder.String()
}
