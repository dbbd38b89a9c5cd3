package share

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetest/internal/model"
)

func sampleResults() model.Results {
	return model.Results{
		TestID:            "6f1c2d3e-0000-4000-8000-000000000001",
		Lang:              "en",
		DurationSeconds:   30,
		ElapsedSeconds:    30,
		Finished:          true,
		GrossWPM:          64,
		NetWPM:            60,
		Accuracy:          0.94,
		CharAccuracy:      0.97,
		KeystrokeAccuracy: 0.94,
		TotalChars:        160,
		CorrectChars:      155,
		CorrectWords:      30,
		TotalWords:        32,
		Backspaces:        4,
		Consistency:       3.25,
		Timeline:          []model.TimelinePoint{{T: 1, WPM: 48}, {T: 2, WPM: 60}},
		ErrorSlices:       []model.ErrorSlice{{Start: 0, End: 10, Correct: 50, Errors: 3}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	res := sampleResults()
	code, err := Encode(res)
	require.NoError(t, err)
	assert.NotContains(t, code, "=")
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")

	got, err := Decode(code)
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestLinkAndParse(t *testing.T) {
	res := sampleResults()
	link, err := Link("https://example.com/result?theme=dark", res)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://example.com/result?"))
	assert.Contains(t, link, "theme=dark")
	assert.Contains(t, link, QueryParam+"=")

	got, err := Parse(link)
	require.NoError(t, err)
	assert.Equal(t, res, got)

	code, err := Encode(res)
	require.NoError(t, err)
	got, err = Parse("  " + code + "\n")
	require.NoError(t, err)
	assert.Equal(t, res, got)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	raw := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"empty":           "",
		"not base64":      "!!!",
		"not json":        raw("hello"),
		"wrong version":   raw(`{"v":2,"result":{}}`),
		"missing fields":  raw(`{"v":1,"result":{"test_id":"x"}}`),
		"extra envelope":  raw(`{"v":1,"result":{},"x":1}`),
		"accuracy range":  raw(`{"v":1,"result":{"test_id":"x","duration_seconds":30,"elapsed_seconds":1,"finished":true,"gross_wpm":1,"net_wpm":1,"accuracy":1.5,"char_accuracy":1,"keystroke_accuracy":1,"total_chars":1,"correct_chars":1,"correct_words":0,"total_words":0,"backspaces":0,"consistency":0}}`),
		"negative wpm":    raw(`{"v":1,"result":{"test_id":"x","duration_seconds":30,"elapsed_seconds":1,"finished":true,"gross_wpm":-1,"net_wpm":1,"accuracy":1,"char_accuracy":1,"keystroke_accuracy":1,"total_chars":1,"correct_chars":1,"correct_words":0,"total_words":0,"backspaces":0,"consistency":0}}`),
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(code)
			require.ErrorIs(t, err, ErrInvalidCode)
		})
	}
}

func TestParseLinkWithoutCode(t *testing.T) {
	_, err := Parse("https://example.com/result?x=1")
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestLinkRejectsBadBaseURL(t *testing.T) {
	_, err := Link("://bad", sampleResults())
	require.Error(t, err)
}
