// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

func mustDecode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestNormalizeSegments_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected []models.Segment
	}{
		{
			name:    "bare list with structured participant",
			payload: `[{"participant":{"id":"p1","name":"Alice","is_host":true},"words":[{"text":"hi"},{"text":"there"}],"language":"en"}]`,
			expected: []models.Segment{{
				Speaker:     "Alice",
				SpeakerID:   "p1",
				Participant: &models.SegmentParticipant{ID: "p1", Name: "Alice", IsHost: boolPtr(true)},
				Words:       []models.Word{{Text: "hi"}, {Text: "there"}},
				Language:    "en",
			}},
		},
		{
			name:    "results key with bare speaker and sibling id",
			payload: `{"results":[{"speaker":"Bob","speaker_id":7,"words":[{"word":"yo"}]}]}`,
			expected: []models.Segment{{
				Speaker:   "Bob",
				SpeakerID: "7",
				Words:     []models.Word{{Text: "yo"}},
			}},
		},
		{
			name:    "data key with plain string words",
			payload: `{"data":[{"speaker":"Carol","words":["a","b"]}]}`,
			expected: []models.Segment{{
				Speaker: "Carol",
				Words:   []models.Word{{Text: "a"}, {Text: "b"}},
			}},
		},
		{
			name:    "nested data results",
			payload: `{"data":{"results":[{"speaker":"Dan","text":"whole sentence"}]}}`,
			expected: []models.Segment{{
				Speaker: "Dan",
				Words:   []models.Word{{Text: "whole sentence"}},
			}},
		},
		{
			name:    "speaker object treated as participant",
			payload: `[{"speaker":{"id":3,"name":"Eve"},"words":[{"text":"ok"}]}]`,
			expected: []models.Segment{{
				Speaker:     "Eve",
				SpeakerID:   "3",
				Participant: &models.SegmentParticipant{ID: "3", Name: "Eve"},
				Words:       []models.Word{{Text: "ok"}},
			}},
		},
		{
			name:    "silent segment keeps its speaker",
			payload: `[{"speaker":"Frank","words":[]}, "garbage", 12]`,
			expected: []models.Segment{{
				Speaker: "Frank",
				Words:   []models.Word{},
			}},
		},
		{
			name:    "silent segment keeps its participant",
			payload: `[{"participant":{"id":"p9","name":"Grace"},"words":[{"text":""}]}]`,
			expected: []models.Segment{{
				Speaker:     "Grace",
				SpeakerID:   "p9",
				Participant: &models.SegmentParticipant{ID: "p9", Name: "Grace"},
				Words:       []models.Word{},
			}},
		},
		{
			name:     "anonymous silent segment is dropped",
			payload:  `[{"words":[]}]`,
			expected: []models.Segment{},
		},
		{name: "unknown map", payload: `{"transcript":"nope"}`, expected: []models.Segment{}},
		{name: "scalar", payload: `"text"`, expected: []models.Segment{}},
		{name: "null", payload: `null`, expected: []models.Segment{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := normalizeSegments(context.Background(), mustDecode(t, tt.payload))
			assert.Equal(t, tt.expected, segments)
		})
	}
}

func TestNormalizeWord_Offsets(t *testing.T) {
	word, ok := normalizeWord(mustDecode(t, `{"text":"x","start_time":"1.25","end":2}`))
	require.True(t, ok)
	assert.Equal(t, 1.25, *word.Start)
	assert.Equal(t, 2.0, *word.End)

	_, ok = normalizeWord(mustDecode(t, `{"start":1}`))
	assert.False(t, ok)
}

func TestNormalizeBot_Variants(t *testing.T) {
	payload := mustDecode(t, `{
		"ID": "ext-2",
		"Title": "Fallback title",
		"status_history": ["ready", {"status": {"code": "in_call"}}, {"code": ""}],
		"status_changes": [{"code": "ignored"}],
		"recordings": [
			{"id": "rec-1", "status": "processing", "started_at": 1770130800, "transcript_job_id": "tx-7"},
			"not a recording"
		]
	}`)

	info, err := normalizeBot(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "ext-2", info.ID)
	assert.Equal(t, "Fallback title", info.Title)
	assert.Equal(t, []models.StatusChange{{Code: "ready"}, {Code: "in_call"}}, info.StatusHistory)
	require.Len(t, info.Recordings, 1)
	rec := info.Recordings[0]
	assert.Equal(t, "processing", rec.Status)
	require.NotNil(t, rec.StartedAt)
	assert.Equal(t, time.Unix(1770130800, 0).UTC(), *rec.StartedAt)
	assert.Nil(t, rec.CompletedAt)
	assert.Equal(t, &models.TranscriptJobRef{ID: "tx-7"}, rec.TranscriptJobRef)
	assert.Empty(t, info.Participants)
}

func TestNormalizeBot_RejectsNonObject(t *testing.T) {
	_, err := normalizeBot(context.Background(), []any{})
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	expected := time.Date(2026, 2, 3, 15, 0, 0, 0, time.UTC)

	for _, v := range []any{
		"2026-02-03T15:00:00Z",
		"2026-02-03T16:00:00+01:00",
		"2026-02-03T15:00:00",
		"2026-02-03 15:00:00",
		float64(expected.Unix()),
		map[string]any{"absolute": "2026-02-03T15:00:00Z"},
	} {
		parsed := parseTimestamp(v)
		require.NotNil(t, parsed, "%v", v)
		assert.True(t, expected.Equal(*parsed), "%v", v)
	}

	assert.Nil(t, parseTimestamp(""))
	assert.Nil(t, parseTimestamp("yesterday"))
	assert.Nil(t, parseTimestamp(nil))
	assert.Nil(t, parseTimestamp(true))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "done", statusCode("done"))
	assert.Equal(t, "done", statusCode(map[string]any{"Code": "done"}))
	assert.Equal(t, "", statusCode(map[string]any{"sub_code": "x"}))
	assert.Equal(t, "", statusCode(nil))
}

func boolPtr(b bool) *bool { return &b }
