package mt940

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// parseDate reads a YYMMDD date. Years below 80 belong to this century.
func parseDate(raw string) (time.Time, error) {
	if len(raw) != 6 {
		return time.Time{}, fmt.Errorf("date %q: want YYMMDD", raw)
	}
	yy, err := strconv.Atoi(raw[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", raw, err)
	}
	year := 2000 + yy
	if yy >= 80 {
		year = 1900 + yy
	}
	return parseMonthDay(year, raw[2:])
}

func parseMonthDay(year int, mmdd string) (time.Time, error) {
	month, err := strconv.Atoi(mmdd[0:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", mmdd, err)
	}
	day, err := strconv.Atoi(mmdd[2:4])
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", mmdd, err)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("date %d-%s: out of range", year, mmdd)
	}
	return t, nil
}

// entryDate resolves the MMDD booking date of a :61: line against its value
// date, which may fall in the neighbouring year.
func entryDate(valueDate time.Time, mmdd string) (time.Time, error) {
	year := valueDate.Year()
	month, err := strconv.Atoi(mmdd[0:2])
	if err != nil {
		return time.Time{}, err
	}
	switch {
	case valueDate.Month() == time.December && month == 1:
		year++
	case valueDate.Month() == time.January && month == 12:
		year--
	}
	return parseMonthDay(year, mmdd)
}

// parseAmount reads an amount that uses a comma as decimal separator.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, ",", ".")
	raw = strings.TrimSuffix(raw, ".")
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(raw)
}

// signed applies a debit/credit mark. C and RD (reversal of debit) are
// inflows; D and RC are outflows.
func signed(mark string, amount decimal.Decimal) decimal.Decimal {
	switch mark {
	case "D", "RC":
		return amount.Neg()
	}
	return amount
}
