// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

// Provider payloads are decoded into generic values first and normalized once
// here. Field names match case-insensitively and scalar types are coerced
// (numeric ids become strings, "true" becomes a bool).

type rawBot struct {
	ID                  string         `mapstructure:"id"`
	Title               string         `mapstructure:"title"`
	MeetingMetadata     map[string]any `mapstructure:"meeting_metadata"`
	StatusHistory       []any          `mapstructure:"status_history"`
	StatusChanges       []any          `mapstructure:"status_changes"`
	Recordings          []any          `mapstructure:"recordings"`
	MeetingParticipants []any          `mapstructure:"meeting_participants"`
}

type rawRecording struct {
	ID              string         `mapstructure:"id"`
	Status          any            `mapstructure:"status"`
	StartedAt       any            `mapstructure:"started_at"`
	CompletedAt     any            `mapstructure:"completed_at"`
	MediaShortcuts  map[string]any `mapstructure:"media_shortcuts"`
	TranscriptJob   any            `mapstructure:"transcript_job"`
	TranscriptJobID string         `mapstructure:"transcript_job_id"`
}

type rawTranscriptJob struct {
	ID          string         `mapstructure:"id"`
	Status      any            `mapstructure:"status"`
	DownloadURL string         `mapstructure:"download_url"`
	Data        map[string]any `mapstructure:"data"`
}

type rawParticipant struct {
	ID     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	IsHost *bool  `mapstructure:"is_host"`
}

type rawSegment struct {
	Participant  map[string]any `mapstructure:"participant"`
	Speaker      any            `mapstructure:"speaker"`
	SpeakerID    string         `mapstructure:"speaker_id"`
	Words        []any          `mapstructure:"words"`
	Text         string         `mapstructure:"text"`
	Language     string         `mapstructure:"language"`
	LanguageCode string         `mapstructure:"language_code"`
}

type rawWord struct {
	Text           string `mapstructure:"text"`
	Word           string `mapstructure:"word"`
	Start          any    `mapstructure:"start"`
	StartTime      any    `mapstructure:"start_time"`
	StartTimestamp any    `mapstructure:"start_timestamp"`
	End            any    `mapstructure:"end"`
	EndTime        any    `mapstructure:"end_time"`
	EndTimestamp   any    `mapstructure:"end_timestamp"`
}

func decode(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func logDataShape(ctx context.Context, what string, err error) {
	slog.WarnContext(ctx, "unexpected recording provider payload shape",
		"payload", what,
		logging.ErrKey, domain.NewDataShapeError("failed to normalize "+what, err),
	)
}

// normalizeBot turns a bot payload into a BotInfo. Only a payload that is not
// an object at all is an error; malformed nested entries are skipped.
func normalizeBot(ctx context.Context, payload any) (*models.BotInfo, error) {
	if _, ok := payload.(map[string]any); !ok {
		return nil, domain.NewDataShapeError("bot payload is not an object")
	}

	var raw rawBot
	if err := decode(payload, &raw); err != nil {
		return nil, domain.NewDataShapeError("failed to decode bot payload", err)
	}

	info := &models.BotInfo{
		ID:            raw.ID,
		Title:         strings.TrimSpace(raw.Title),
		StatusHistory: []models.StatusChange{},
		Recordings:    []models.Recording{},
		Participants:  []models.ProviderParticipant{},
	}
	if title, ok := lookup(raw.MeetingMetadata, "title"); ok {
		if s := toString(title); strings.TrimSpace(s) != "" {
			info.Title = strings.TrimSpace(s)
		}
	}

	history := raw.StatusHistory
	if len(history) == 0 {
		history = raw.StatusChanges
	}
	for _, entry := range history {
		if change, ok := normalizeStatusChange(entry); ok {
			info.StatusHistory = append(info.StatusHistory, change)
		}
	}

	for _, entry := range raw.Recordings {
		var rec rawRecording
		if err := decode(entry, &rec); err != nil {
			logDataShape(ctx, "recording", err)
			continue
		}
		info.Recordings = append(info.Recordings, models.Recording{
			ID:               rec.ID,
			Status:           statusCode(rec.Status),
			StartedAt:        parseTimestamp(rec.StartedAt),
			CompletedAt:      parseTimestamp(rec.CompletedAt),
			TranscriptJobRef: recordingTranscriptRef(ctx, rec),
		})
	}

	for _, entry := range raw.MeetingParticipants {
		var p rawParticipant
		if err := decode(entry, &p); err != nil {
			logDataShape(ctx, "participant", err)
			continue
		}
		if p.ID == "" && strings.TrimSpace(p.Name) == "" {
			continue
		}
		info.Participants = append(info.Participants, models.ProviderParticipant{
			ID:     p.ID,
			Name:   strings.TrimSpace(p.Name),
			IsHost: p.IsHost != nil && *p.IsHost,
		})
	}

	return info, nil
}

func normalizeStatusChange(entry any) (models.StatusChange, bool) {
	switch v := entry.(type) {
	case string:
		return models.StatusChange{Code: v}, v != ""
	case map[string]any:
		code := statusCode(v)
		if code == "" {
			if nested, ok := lookup(v, "status"); ok {
				code = statusCode(nested)
			}
		}
		if code == "" {
			return models.StatusChange{}, false
		}
		change := models.StatusChange{Code: code}
		if sub, ok := lookup(v, "sub_code"); ok {
			change.SubCode = toString(sub)
		}
		if created, ok := lookup(v, "created_at"); ok {
			change.CreatedAt = parseTimestamp(created)
		}
		return change, true
	}
	return models.StatusChange{}, false
}

// recordingTranscriptRef finds the transcript job of a recording, which may
// be a media shortcut, an embedded job object or a bare job id.
func recordingTranscriptRef(ctx context.Context, rec rawRecording) *models.TranscriptJobRef {
	var candidate any
	if shortcut, ok := lookup(rec.MediaShortcuts, "transcript"); ok && shortcut != nil {
		candidate = shortcut
	} else if rec.TranscriptJob != nil {
		candidate = rec.TranscriptJob
	}

	if candidate != nil {
		if id, ok := candidate.(string); ok {
			return &models.TranscriptJobRef{ID: id}
		}
		job, err := normalizeTranscriptJob(candidate)
		if err != nil {
			logDataShape(ctx, "transcript job reference", err)
		} else if job.ID != "" {
			return &models.TranscriptJobRef{ID: job.ID, Status: job.Status, DownloadURL: job.DownloadURL}
		}
	}

	if rec.TranscriptJobID != "" {
		return &models.TranscriptJobRef{ID: rec.TranscriptJobID}
	}
	return nil
}

func normalizeTranscriptJob(payload any) (*models.TranscriptJob, error) {
	if _, ok := payload.(map[string]any); !ok {
		return nil, domain.NewDataShapeError("transcript job payload is not an object")
	}

	var raw rawTranscriptJob
	if err := decode(payload, &raw); err != nil {
		return nil, domain.NewDataShapeError("failed to decode transcript job payload", err)
	}

	job := &models.TranscriptJob{
		ID:          raw.ID,
		Status:      strings.ToLower(statusCode(raw.Status)),
		DownloadURL: raw.DownloadURL,
	}
	if job.DownloadURL == "" {
		if u, ok := lookup(raw.Data, "download_url"); ok {
			job.DownloadURL = toString(u)
		}
	}
	return job, nil
}

// normalizeSegments turns a downloaded transcript into segments. Unknown
// shapes yield an empty slice and are only logged.
func normalizeSegments(ctx context.Context, payload any) []models.Segment {
	segments := []models.Segment{}

	items, ok := segmentItems(payload, 2)
	if !ok {
		if payload != nil {
			logDataShape(ctx, "transcript", nil)
		}
		return segments
	}

	for _, item := range items {
		if _, isMap := item.(map[string]any); !isMap {
			logDataShape(ctx, "transcript segment", nil)
			continue
		}
		var raw rawSegment
		if err := decode(item, &raw); err != nil {
			logDataShape(ctx, "transcript segment", err)
			continue
		}
		segment := normalizeSegment(ctx, raw)
		// A silent turn still names a participant.
		if len(segment.Words) == 0 && segment.Participant == nil && segment.Speaker == "" && segment.SpeakerID == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// segmentItems unwraps a bare list or a map holding the list under a
// results or data key.
func segmentItems(payload any, depth int) ([]any, bool) {
	switch v := payload.(type) {
	case []any:
		return v, true
	case map[string]any:
		if depth == 0 {
			return nil, false
		}
		for _, key := range []string{"results", "data"} {
			if nested, ok := lookup(v, key); ok {
				return segmentItems(nested, depth-1)
			}
		}
	}
	return nil, false
}

func normalizeSegment(ctx context.Context, raw rawSegment) models.Segment {
	segment := models.Segment{
		Words:    []models.Word{},
		Language: raw.Language,
	}
	if segment.Language == "" {
		segment.Language = raw.LanguageCode
	}

	participant := raw.Participant
	if participant == nil {
		if m, ok := raw.Speaker.(map[string]any); ok {
			participant = m
		}
	}

	if participant != nil {
		var p rawParticipant
		if err := decode(participant, &p); err != nil {
			logDataShape(ctx, "segment participant", err)
		} else {
			segment.Participant = &models.SegmentParticipant{ID: p.ID, Name: strings.TrimSpace(p.Name), IsHost: p.IsHost}
			segment.Speaker = segment.Participant.Name
			segment.SpeakerID = p.ID
		}
	} else {
		segment.Speaker = strings.TrimSpace(toString(raw.Speaker))
		segment.SpeakerID = raw.SpeakerID
	}

	for _, entry := range raw.Words {
		if word, ok := normalizeWord(entry); ok {
			segment.Words = append(segment.Words, word)
		}
	}
	if len(segment.Words) == 0 && strings.TrimSpace(raw.Text) != "" {
		segment.Words = append(segment.Words, models.Word{Text: strings.TrimSpace(raw.Text)})
	}
	return segment
}

func normalizeWord(entry any) (models.Word, bool) {
	if s, ok := entry.(string); ok {
		return models.Word{Text: s}, s != ""
	}

	var raw rawWord
	if err := decode(entry, &raw); err != nil {
		return models.Word{}, false
	}
	word := models.Word{Text: raw.Text}
	if word.Text == "" {
		word.Text = raw.Word
	}
	if word.Text == "" {
		return models.Word{}, false
	}
	word.Start = firstOffset(raw.StartTimestamp, raw.Start, raw.StartTime)
	word.End = firstOffset(raw.EndTimestamp, raw.End, raw.EndTime)
	return word, true
}

// firstOffset returns the first value that parses as an offset in seconds.
// Offsets may be bare numbers or objects with a relative key.
func firstOffset(values ...any) *float64 {
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			v, _ = lookup(m, "relative")
		}
		if f, ok := toFloat(v); ok {
			return &f
		}
	}
	return nil
}

// statusCode reads a status that is either a bare string or an object with a code.
func statusCode(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]any:
		if code, ok := lookup(s, "code"); ok {
			return toString(code)
		}
	}
	return ""
}

func lookup(m map[string]any, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, !math.IsNaN(f)
	case string:
		parsed, err := strconv.ParseFloat(f, 64)
		return parsed, err == nil
	}
	return 0, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC3339 strings (with or without a zone), unix
// seconds and objects with an absolute key. Anything else is nil.
func parseTimestamp(v any) *time.Time {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				parsed = parsed.UTC()
				return &parsed
			}
		}
	case float64:
		sec, frac := math.Modf(t)
		parsed := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return &parsed
	case map[string]any:
		if abs, ok := lookup(t, "absolute"); ok {
			return parseTimestamp(abs)
		}
	}
	return nil
}
