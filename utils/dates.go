package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// DateKey formats the UTC calendar date of t the way completions store it.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ValidateMonth accepts "" (no filter) or a YYYY-MM month.
func ValidateMonth(month string) error {
	if month == "" {
		return nil
	}
	if _, err := time.Parse(MonthLayout, month); err != nil {
		return fmt.Errorf("month must be in YYYY-MM format")
	}
	return nil
}

// Initials takes the first letter of each name, upper-cased, or "?" when both are empty.
func Initials(firstName, lastName string) string {
	var b strings.Builder
	for _, s := range []string{firstName, lastName} {
		if r, _ := utf8.DecodeRuneInString(s); r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// LocalHour converts the UTC hour of now into a user's local hour given an
// offset in minutes east of UTC. Whole hours only, rounding the offset down.
func LocalHour(now time.Time, offsetMinutes int) int {
	shift := offsetMinutes / 60
	if offsetMinutes%60 != 0 && offsetMinutes < 0 {
		shift--
	}
	h := (now.UTC().Hour() + shift) % 24
	if h < 0 {
		h += 24
	}
	return h
}
