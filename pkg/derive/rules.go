package derive

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"farmcore/pkg/record"
)

// Field value formats shared by the farm forms: calendar dates carry no time
// zone and times are minute-granular.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// TotalPriceRule derives totalPath as quantity times unit price, rounded to
// two decimals and formatted the way the forms display money. Non-numeric or
// empty inputs yield a nil target instead of NaN.
func TotalPriceRule(quantityPath, pricePath, totalPath string) Rule {
	return Rule{
		Name:    "total_price",
		Sources: []string{quantityPath, pricePath},
		Targets: []string{totalPath},
		Compute: func(rec record.Record) map[string]any {
			quantity, okQ := parseNumber(rec, quantityPath)
			price, okP := parseNumber(rec, pricePath)
			if !okQ || !okP {
				return map[string]any{totalPath: nil}
			}
			return map[string]any{totalPath: fmt.Sprintf("%.2f", quantity*price)}
		},
	}
}

// EndFromDurationRule derives the end date/time from the start plus a duration
// in whole minutes. It fires when the start or the duration changes; when the
// inputs cannot be parsed the end fields are left untouched.
func EndFromDurationRule(startDatePath, startTimePath, durationPath, endDatePath, endTimePath string) Rule {
	return Rule{
		Name:    "end_from_duration",
		Sources: []string{startDatePath, startTimePath, durationPath},
		Targets: []string{endDatePath, endTimePath},
		Compute: func(rec record.Record) map[string]any {
			start, ok := parseDateTime(rec, startDatePath, startTimePath)
			if !ok {
				return nil
			}
			minutes, ok := parseNumber(rec, durationPath)
			if !ok {
				return nil
			}
			end := start.Add(time.Duration(minutes * float64(time.Minute)))
			return map[string]any{
				endDatePath: end.Format(DateLayout),
				endTimePath: end.Format(TimeLayout),
			}
		},
	}
}

// DurationFromEndRule is the reverse direction of the pair: editing the end
// date/time recomputes the duration as rounded whole minutes. A negative
// duration is written as-is; surfacing it is the caller's concern.
func DurationFromEndRule(startDatePath, startTimePath, endDatePath, endTimePath, durationPath string) Rule {
	return Rule{
		Name:    "duration_from_end",
		Sources: []string{endDatePath, endTimePath},
		Targets: []string{durationPath},
		Compute: func(rec record.Record) map[string]any {
			start, okS := parseDateTime(rec, startDatePath, startTimePath)
			end, okE := parseDateTime(rec, endDatePath, endTimePath)
			if !okS || !okE {
				return nil
			}
			minutes := math.Round(end.Sub(start).Minutes())
			return map[string]any{durationPath: minutes}
		},
	}
}

// parseNumber reads a numeric leaf leniently: form inputs arrive as strings,
// loaded records may carry float64 from JSON decoding.
func parseNumber(rec record.Record, path string) (float64, bool) {
	value, ok := record.Get(rec, path)
	if !ok || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func parseDateTime(rec record.Record, datePath, timePath string) (time.Time, bool) {
	date := record.GetString(rec, datePath)
	clock := record.GetString(rec, timePath)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(DateLayout+" "+TimeLayout, date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
