package scan

import (
	"errors"
	"strings"
	"time"
)

const (
	cutoffAllKeywordConstant      = "all"
	cutoffSixMonthsKeyword        = "6m"
	cutoffOneYearKeywordConstant  = "1y"
	cutoffTwoYearsKeywordConstant = "2y"
	cutoffDateLayoutConstant      = "2006-01-02"
	sixMonthsInDaysConstant       = 180
	oneYearInDaysConstant         = 365
	twoYearsInDaysConstant        = 730
	hoursPerDayConstant           = 24
	unknownCutoffMessageConstant  = "unrecognized history cutoff"
)

// ErrUnknownCutoff reports a cutoff expression that is neither a known
// keyword nor a calendar date.
var ErrUnknownCutoff = errors.New(unknownCutoffMessageConstant)

// ParseCutoff resolves a history cutoff expression to an absolute time.
// Empty input and "all" select the full history and yield the zero time;
// "6m", "1y" and "2y" are relative to now; anything else must be a
// YYYY-MM-DD date. Keywords are matched without regard to surrounding
// whitespace or letter case.
func ParseCutoff(expression string, now time.Time) (time.Time, error) {
	expression = strings.ToLower(strings.TrimSpace(expression))
	switch expression {
	case "", cutoffAllKeywordConstant:
		return time.Time{}, nil
	case cutoffSixMonthsKeyword:
		return now.Add(-sixMonthsInDaysConstant * hoursPerDayConstant * time.Hour), nil
	case cutoffOneYearKeywordConstant:
		return now.Add(-oneYearInDaysConstant * hoursPerDayConstant * time.Hour), nil
	case cutoffTwoYearsKeywordConstant:
		return now.Add(-twoYearsInDaysConstant * hoursPerDayConstant * time.Hour), nil
	}

	parsedDate, parseError := time.Parse(cutoffDateLayoutConstant, expression)
	if parseError != nil {
		return time.Time{}, ErrUnknownCutoff
	}
	return parsedDate, nil
}
