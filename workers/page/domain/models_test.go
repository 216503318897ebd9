package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldErrors_KeepsServerOrder(t *testing.T) {
	var res SubmissionResult
	err := json.Unmarshal([]byte(`{"success": false, "error": {"title": ["Required"], "email": ["Invalid format", "Too long"], "year": "Out of range"}}`), &res)
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, FieldErrors{
		{Field: "title", Messages: []string{"Required"}},
		{Field: "email", Messages: []string{"Invalid format", "Too long"}},
		{Field: "year", Messages: []string{"Out of range"}},
	}, res.Error)
}

func TestFieldErrors_NullAndMissing(t *testing.T) {
	var res SubmissionResult
	require.NoError(t, json.Unmarshal([]byte(`{"success": true, "error": null}`), &res))
	assert.True(t, res.Success)
	assert.Nil(t, res.Error)

	res = SubmissionResult{}
	require.NoError(t, json.Unmarshal([]byte(`{"success": true}`), &res))
	assert.Nil(t, res.Error)
}

func TestFieldErrors_RejectsNonObject(t *testing.T) {
	var res SubmissionResult
	assert.Error(t, json.Unmarshal([]byte(`{"success": false, "error": ["x"]}`), &res))
	assert.Error(t, json.Unmarshal([]byte(`{"success": false, "error": {"email": 3}}`), &res))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{
		{Field: "title", Messages: []string{"Required"}},
		{Field: "email", Messages: []string{"Invalid format", "Too long"}},
	}}
	assert.Equal(t, "Error submitting fact:\ntitle: Required\nemail: Invalid format, Too long\n", err.Error())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")

	assert.ErrorIs(t, &NetworkError{Cause: cause}, cause)
	assert.ErrorIs(t, &ParseError{Cause: cause}, cause)
	assert.ErrorIs(t, &SubmissionTransportError{Cause: &NetworkError{Cause: cause}}, cause)

	assert.Equal(t, "HTTP error! status: 500", (&HTTPError{Status: 500}).Error())
	assert.Equal(t, "page configuration: grad_year is not defined", (&ConfigError{Field: PageVarGradYear}).Error())
}

func TestResultsPayload_OptionalBookFields(t *testing.T) {
	var p ResultsPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"facts": [{"year": 1999, "title": "T", "description": "D", "source_url": "https://a"}],
		"significant_events": [],
		"recommended_reading": [{"title": "B", "author": "A", "source_url": "https://b"}]
	}`), &p))

	require.Len(t, p.Facts, 1)
	assert.Equal(t, 1999, p.Facts[0].Year)
	assert.Empty(t, p.SignificantEvents)
	require.Len(t, p.RecommendedReading, 1)
	assert.Empty(t, p.RecommendedReading[0].Description)
	assert.Nil(t, p.RecommendedReading[0].Categories)
}

func TestNewIndexMessage(t *testing.T) {
	msg := NewIndexMessage(1999, "music", "s3://b/k.html", ResultsPayload{
		Facts:              []FactRecord{{Title: "Undated fact"}},
		SignificantEvents:  []EventRecord{{Year: 1998, Title: "Late 98"}},
		RecommendedReading: []BookRecord{{Title: "Book", Author: "Someone"}},
	})

	assert.Equal(t, "music", msg.Category)
	assert.Equal(t, []ResultDocument{
		{Kind: KindFact, Year: 1999, Title: "Undated fact"},
		{Kind: KindEvent, Year: 1998, Title: "Late 98"},
		{Kind: KindBook, Year: 1999, Title: "Book", Author: "Someone"},
	}, msg.Records)
}
