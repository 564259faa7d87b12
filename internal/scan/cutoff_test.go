package scan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/internal/scan"
)

func TestParseCutoff(testInstance *testing.T) {
	now := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name           string
		expression     string
		expectedCutoff time.Time
	}{
		{name: "empty_selects_full_history", expression: "", expectedCutoff: time.Time{}},
		{name: "all_selects_full_history", expression: "all", expectedCutoff: time.Time{}},
		{name: "six_months", expression: "6m", expectedCutoff: now.AddDate(0, 0, -180)},
		{name: "one_year", expression: "1y", expectedCutoff: now.AddDate(0, 0, -365)},
		{name: "two_years", expression: "2y", expectedCutoff: now.AddDate(0, 0, -730)},
		{name: "calendar_date", expression: "2025-03-15", expectedCutoff: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{name: "uppercase_keyword", expression: "ALL", expectedCutoff: time.Time{}},
		{name: "padded_keyword", expression: "  all  ", expectedCutoff: time.Time{}},
		{name: "mixed_case_duration", expression: "1Y", expectedCutoff: now.AddDate(0, 0, -365)},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			cutoff, parseError := scan.ParseCutoff(testCase.expression, now)
			require.NoError(subtestInstance, parseError)
			require.True(subtestInstance, testCase.expectedCutoff.Equal(cutoff))
		})
	}
}

func TestParseCutoffRejectsUnknownExpressions(testInstance *testing.T) {
	for _, expression := range []string{"yesterday", "3w", "2025/03/15"} {
		_, parseError := scan.ParseCutoff(expression, time.Now())
		require.ErrorIs(testInstance, parseError, scan.ErrUnknownCutoff)
	}
}
