package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/challengeclub/competition-server-go/internal/config"
	apperrors "github.com/challengeclub/competition-server-go/internal/errors"
	"github.com/challengeclub/competition-server-go/internal/model"
)

const dateLayout = "2006-01-02"
const periodLayout = "02/01/2006"

// ParseDateTokens reads day-of-month numbers ("5", "5 6 7", "5,6,7") and
// inclusive ranges ("6-10"), resolving each against the current month in
// the given location. Every resolved date must fall inside the challenge
// period and not in the future. Duplicates collapse to one.
func ParseDateTokens(input string, now time.Time, challenge *model.Challenge) ([]time.Time, error) {
	tokens := strings.FieldsFunc(input, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(tokens) == 0 {
		return nil, apperrors.Validation("Give at least one day of the month, like 5, 5,6,7 or 6-10.")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := dateOnly(challenge.StartDate, now.Location())
	end := dateOnly(challenge.EndDate, now.Location())
	lastDay := daysInMonth(now.Year(), now.Month())

	seen := make(map[string]bool)
	dates := []time.Time{}
	var days []int
	for _, token := range tokens {
		days = days[:0]
		if first, last, ok := strings.Cut(token, "-"); ok {
			from, err1 := strconv.Atoi(first)
			to, err2 := strconv.Atoi(last)
			if err1 != nil || err2 != nil || from < 1 || to > lastDay || from > to {
				return nil, apperrors.Validation(fmt.Sprintf("%q isn't a day range of this month, use something like 6-10.", token))
			}
			for day := from; day <= to; day++ {
				days = append(days, day)
			}
		} else {
			day, err := strconv.Atoi(token)
			if err != nil || day < 1 || day > lastDay {
				return nil, apperrors.Validation(fmt.Sprintf("%q isn't a day of this month (1-%d).", token, lastDay))
			}
			days = append(days, day)
		}
		for _, day := range days {
			date := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
			if date.After(today) {
				return nil, apperrors.Validation(fmt.Sprintf("Day %d is in the future.", day))
			}
			if date.Before(start) || date.After(end) {
				return nil, apperrors.Validation(fmt.Sprintf("Day %d is outside the challenge period.", day))
			}
			key := date.Format(dateLayout)
			if seen[key] {
				continue
			}
			seen[key] = true
			dates = append(dates, date)
		}
	}
	return dates, nil
}

// ParsePoints reads a positive whole number of points.
func ParsePoints(input string) (int64, error) {
	points, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0, apperrors.Validation("Points must be a whole number.")
	}
	if points < 1 {
		return 0, apperrors.Validation("Points must be at least 1.")
	}
	if points > config.MaxPointsPerUser {
		return 0, apperrors.CapacityLimit(fmt.Sprintf("That's more than the %d point total limit.", config.MaxPointsPerUser))
	}
	return points, nil
}

// ParseValue reads a decimal measurement for change challenges.
func ParseValue(input string) (float64, error) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(input), ",", "."), 64)
	if err != nil {
		return 0, apperrors.Validation("Give the value as a number, like 82.5.")
	}
	if value < -config.MaxBaselineMagnitude || value > config.MaxBaselineMagnitude {
		return 0, apperrors.Validation(fmt.Sprintf("Values must stay within %d either way.", config.MaxBaselineMagnitude))
	}
	return value, nil
}

// ParsePeriod reads "DD/MM/YYYY to DD/MM/YYYY".
func ParsePeriod(input string, loc *time.Location) (start, end time.Time, err error) {
	parts := strings.Split(strings.ToLower(input), " to ")
	if len(parts) != 2 {
		return start, end, apperrors.Validation("Give the period as DD/MM/YYYY to DD/MM/YYYY.")
	}
	start, err = time.ParseInLocation(periodLayout, strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return start, end, apperrors.Validation(fmt.Sprintf("%q isn't a valid date, use DD/MM/YYYY.", strings.TrimSpace(parts[0])))
	}
	end, err = time.ParseInLocation(periodLayout, strings.TrimSpace(parts[1]), loc)
	if err != nil {
		return start, end, apperrors.Validation(fmt.Sprintf("%q isn't a valid date, use DD/MM/YYYY.", strings.TrimSpace(parts[1])))
	}
	return start, end, nil
}

// parseSuggestionRef reads a "#<n>" reference into a position on the open
// suggestion listing.
func parseSuggestionRef(input string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(input), "#")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ValidateLength checks free-text fields against their bounds.
func ValidateLength(input string, min, max int, what string) error {
	n := len(strings.TrimSpace(input))
	if n < min || n > max {
		return apperrors.Validation(fmt.Sprintf("The %s must be %d-%d characters.", what, min, max))
	}
	return nil
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func joinDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.Format(dateLayout)
	}
	return strings.Join(parts, ",")
}

func splitDates(value string, loc *time.Location) ([]time.Time, error) {
	parts := strings.Split(value, ",")
	dates := make([]time.Time, len(parts))
	for i, p := range parts {
		d, err := time.ParseInLocation(dateLayout, p, loc)
		if err != nil {
			return nil, err
		}
		dates[i] = d
	}
	return dates, nil
}
