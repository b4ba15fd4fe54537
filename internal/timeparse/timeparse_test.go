package timeparse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/llm"
)

func mustParse(t *testing.T, text, tz string, ref time.Time) *Result {
	t.Helper()
	result, err := Parse(text, tz, Options{Reference: ref})
	require.NoError(t, err)
	return result
}

func TestParse_TimezoneRequired(t *testing.T) {
	_, err := Parse("tomorrow at 3pm", "", Options{})
	assert.ErrorIs(t, err, ErrTimezoneRequired)
}

func TestParse_InvalidTimezone(t *testing.T) {
	_, err := Parse("tomorrow at 3pm", "Mars/Olympus_Mons", Options{})
	assert.ErrorIs(t, err, ErrInvalidTimezone)
}

func TestParse_TomorrowWithExplicitTime(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "math lesson tomorrow at 3pm", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), result.Start)
	assert.Equal(t, time.Date(2024, 6, 2, 16, 0, 0, 0, time.UTC), result.End)
	assert.InDelta(t, 1.0, result.Confidence, 0.001)
}

func TestParse_BareTimeRollsAcrossDSTBoundary(t *testing.T) {
	// Reference falls on the US spring-forward date in New York. The
	// resolved 3pm is in EDT, so the UTC offset is -4 rather than -5.
	ref := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	result := mustParse(t, "3pm", "America/New_York", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 3, 10, 19, 0, 0, 0, time.UTC), result.Start)
}

func TestParse_DateWithoutTimeNeedsDisambiguation(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "can we meet tomorrow?", "UTC", ref)

	assert.False(t, result.Success)
	require.True(t, result.NeedsDisambiguation)
	require.Len(t, result.Candidates, 3)
	assert.Equal(t, time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), result.Candidates[0].Start)
	assert.Equal(t, time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC), result.Candidates[1].Start)
	assert.Equal(t, time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), result.Candidates[2].Start)
}

func TestParse_AmbiguousMeridiem(t *testing.T) {
	ref := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	result := mustParse(t, "lesson tomorrow at 3", "UTC", ref)

	require.True(t, result.NeedsDisambiguation)
	require.Len(t, result.Candidates, 2)
	// pm reading first; school and social events skew afternoon.
	assert.Equal(t, time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), result.Candidates[0].Start)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), result.Candidates[1].Start)
}

func TestParse_AmbiguousTwelveSplitsNoonAndMidnight(t *testing.T) {
	ref := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	result := mustParse(t, "lunch tomorrow at 12:30", "UTC", ref)

	require.True(t, result.NeedsDisambiguation)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, time.Date(2024, 6, 2, 12, 30, 0, 0, time.UTC), result.Candidates[0].Start)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 30, 0, 0, time.UTC), result.Candidates[1].Start)
	assert.NotEqual(t, result.Candidates[0].Start, result.Candidates[1].Start)
	assert.Equal(t, "tomorrow 12:30 pm", result.Candidates[0].Label)
	assert.Equal(t, "tomorrow 12:30 am", result.Candidates[1].Label)
}

func TestParse_PastDate(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "the game was on January 15, 2023", "UTC", ref)

	assert.False(t, result.Success)
	assert.Equal(t, CodePastDate, result.Code)
}

func TestParse_SameDayEarlierClockTimeIsNotPast(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "today at 9am", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), result.Start)
}

func TestParse_NoDateFound(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "thanks, sounds good!", "UTC", ref)

	assert.False(t, result.Success)
	assert.Equal(t, CodeNoDateFound, result.Code)
}

func TestParse_MonthDayRollsToNextYear(t *testing.T) {
	ref := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "recital on June 5 at 6pm", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2025, 6, 5, 18, 0, 0, 0, time.UTC), result.Start)
}

func TestParse_ExplicitYear(t *testing.T) {
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "conference on 2024-09-15 at 10am", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 9, 15, 10, 0, 0, 0, time.UTC), result.Start)
}

func TestParse_Weekday(t *testing.T) {
	// Reference is a Saturday.
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "practice on Wednesday at 4pm", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 6, 5, 16, 0, 0, 0, time.UTC), result.Start)
	assert.Equal(t, time.Weekday(3), result.Start.Weekday())
}

func TestParse_NextWeekdayOnSameWeekday(t *testing.T) {
	// Reference is a Saturday; "next saturday" means seven days out.
	ref := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	result := mustParse(t, "next saturday at noon", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC), result.Start)
}

func TestParse_TwentyFourHourClock(t *testing.T) {
	ref := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	result := mustParse(t, "tomorrow at 15:30", "UTC", ref)

	require.True(t, result.Success)
	assert.Equal(t, time.Date(2024, 6, 2, 15, 30, 0, 0, time.UTC), result.Start)
}

func TestParse_DefaultDurationOption(t *testing.T) {
	ref := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	result, err := Parse("tomorrow at 2pm", "UTC", Options{
		Reference:       ref,
		DefaultDuration: 30 * time.Minute,
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 30*time.Minute, result.End.Sub(result.Start))
}

type stubClient struct {
	text string
	err  error
}

func (s *stubClient) Generate(_ context.Context, _ llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text, Model: "stub"}, nil
}

func (s *stubClient) Available(context.Context) bool { return s.err == nil }

func TestDisambiguate_PicksCandidate(t *testing.T) {
	candidates := []Candidate{
		{Start: time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 2, 16, 0, 0, 0, time.UTC), Label: "3:00 pm"},
		{Start: time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 2, 4, 0, 0, 0, time.UTC), Label: "3:00 am"},
	}

	client := &stubClient{text: `{"choice": 1, "confidence": 0.85}`}
	result, err := Disambiguate(context.Background(), client, "lesson at 3", candidates)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, candidates[0].Start, result.Start)
	assert.InDelta(t, 0.85, result.Confidence, 0.001)
}

func TestDisambiguate_FallsBackOnProviderError(t *testing.T) {
	candidates := []Candidate{
		{Start: time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), Label: "3:00 pm"},
		{Start: time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), Label: "3:00 am"},
	}

	client := &stubClient{err: llm.ErrUnavailable}
	result, err := Disambiguate(context.Background(), client, "lesson at 3", candidates)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, candidates[0].Start, result.Start)
	assert.InDelta(t, 0.3, result.Confidence, 0.001)
}

func TestDisambiguate_OutOfRangeChoiceFallsBack(t *testing.T) {
	candidates := []Candidate{
		{Start: time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), Label: "3:00 pm"},
		{Start: time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), Label: "3:00 am"},
	}

	client := &stubClient{text: `{"choice": 7, "confidence": 0.9}`}
	result, err := Disambiguate(context.Background(), client, "lesson at 3", candidates)
	require.NoError(t, err)
	assert.Equal(t, candidates[0].Start, result.Start)
}

func TestDisambiguate_SingleCandidate(t *testing.T) {
	candidates := []Candidate{
		{Start: time.Date(2024, 6, 2, 15, 0, 0, 0, time.UTC), Label: "3:00 pm"},
	}
	result, err := Disambiguate(context.Background(), nil, "lesson", candidates)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
}
