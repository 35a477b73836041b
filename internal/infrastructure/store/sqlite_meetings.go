// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

const meetingColumns = "id, title, recorded_at, duration_seconds, calendar_event_id, bot_id, transcript_attempts, created_at, updated_at"

func scanMeeting(scanner interface{ Scan(dest ...any) error }) (*models.Meeting, error) {
	var (
		meeting         models.Meeting
		recordedAt      sql.NullString
		duration        sql.NullInt64
		calendarEventID sql.NullString
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(
		&meeting.ID,
		&meeting.Title,
		&recordedAt,
		&duration,
		&calendarEventID,
		&meeting.BotID,
		&meeting.TranscriptAttempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	meeting.RecordedAt = parseNullTime(recordedAt)
	if duration.Valid {
		d := duration.Int64
		meeting.DurationSeconds = &d
	}
	meeting.CalendarEventID = calendarEventID.String
	meeting.CreatedAt = parseTime(createdRaw)
	meeting.UpdatedAt = parseTime(updatedRaw)
	return &meeting, nil
}

// marshalSegments encodes segments, always as a JSON array.
func marshalSegments(segments []models.Segment) (string, error) {
	if segments == nil {
		segments = []models.Segment{}
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetMeetingByBot returns the meeting materialized for a bot, or nil.
func (s *SQLiteStore) GetMeetingByBot(ctx context.Context, botID string) (_ *models.Meeting, err error) {
	ctx, span := s.startSpan(ctx, "select", "meetings", attribute.String("bot_id", botID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE bot_id = ?", botID)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("failed to get meeting by bot", err)
	}
	return meeting, nil
}

// GetMeetingWithDetails returns a meeting with its transcript and
// participants, or nil when the meeting does not exist.
func (s *SQLiteStore) GetMeetingWithDetails(ctx context.Context, meetingID string) (_ *models.MeetingDetails, err error) {
	ctx, span := s.startSpan(ctx, "select", "meetings", attribute.String("meeting_id", meetingID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE id = ?", meetingID)
	meeting, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("failed to get meeting", err)
	}

	details := &models.MeetingDetails{Meeting: *meeting, Participants: []models.Participant{}}

	var (
		segmentsRaw string
		language    string
		updatedRaw  string
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT segments, language, updated_at FROM transcripts WHERE meeting_id = ?", meetingID,
	).Scan(&segmentsRaw, &language, &updatedRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, domain.NewPersistenceError("failed to get transcript", err)
	default:
		transcript := &models.Transcript{
			MeetingID: meetingID,
			Segments:  []models.Segment{},
			Language:  language,
			UpdatedAt: parseTime(updatedRaw),
		}
		if err := json.Unmarshal([]byte(segmentsRaw), &transcript.Segments); err != nil {
			return nil, domain.NewPersistenceError("failed to decode transcript segments", err)
		}
		details.Transcript = transcript
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT external_participant_id, name, is_host FROM participants WHERE meeting_id = ? ORDER BY id", meetingID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list participants", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			participant = models.Participant{MeetingID: meetingID}
			externalID  sql.NullString
		)
		if err := rows.Scan(&externalID, &participant.Name, &participant.IsHost); err != nil {
			return nil, domain.NewPersistenceError("failed to scan participant", err)
		}
		if externalID.Valid {
			id := externalID.String
			participant.ExternalParticipantID = &id
		}
		details.Participants = append(details.Participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("failed to list participants", err)
	}

	return details, nil
}

// CreateMeetingRecord writes the meeting, its transcript and its participants
// in one transaction. A failure to write the meeting or transcript rolls the
// whole record back. Participants that cannot be written are skipped and
// reported back without failing the transaction.
func (s *SQLiteStore) CreateMeetingRecord(ctx context.Context, record *models.MeetingRecord) (_ []models.ParticipantFailure, err error) {
	if record == nil || record.Meeting == nil {
		return nil, domain.NewValidationError("meeting record is required")
	}
	meeting := record.Meeting

	ctx, span := s.startSpan(ctx, "insert", "meetings",
		attribute.String("meeting_id", meeting.ID),
		attribute.String("bot_id", meeting.BotID),
		attribute.Int("participants", len(record.Participants)),
	)
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	transcript := record.Transcript
	if transcript == nil {
		transcript = &models.Transcript{Language: models.UnknownTranscriptLanguage}
	}
	segments, err := marshalSegments(transcript.Segments)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to encode transcript segments", err)
	}

	now := s.now()
	var failures []models.ParticipantFailure

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		failures = nil

		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO meetings (`+meetingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meeting.ID,
			meeting.Title,
			nullTime(meeting.RecordedAt),
			meeting.DurationSeconds,
			nullString(meeting.CalendarEventID),
			meeting.BotID,
			meeting.TranscriptAttempts,
			formatTime(now),
			formatTime(now),
		)
		if execErr != nil {
			return execErr
		}

		_, execErr = tx.ExecContext(ctx,
			"INSERT INTO transcripts (meeting_id, segments, language, updated_at) VALUES (?, ?, ?, ?)",
			meeting.ID, segments, transcript.Language, formatTime(now),
		)
		if execErr != nil {
			return fmt.Errorf("insert transcript: %w", execErr)
		}

		for _, participant := range record.Participants {
			participant.MeetingID = meeting.ID
			var externalID sql.NullString
			if participant.ExternalParticipantID != nil {
				externalID = nullString(*participant.ExternalParticipantID)
			}
			_, insertErr := tx.ExecContext(ctx,
				`INSERT INTO participants (meeting_id, external_participant_id, name, is_host, identity_key) VALUES (?, ?, ?, ?, ?)`,
				meeting.ID, externalID, participant.Name, participant.IsHost, participant.IdentityKey(),
			)
			if insertErr != nil {
				if isSQLiteBusy(insertErr) {
					return insertErr
				}
				slog.WarnContext(ctx, "skipping participant that could not be stored",
					logging.ErrKey, insertErr,
					"meeting_id", meeting.ID,
					"participant", participant.IdentityKey(),
				)
				failures = append(failures, models.ParticipantFailure{Participant: participant, Err: insertErr})
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewConflictError(
				fmt.Sprintf("meeting already materialized for bot %s", meeting.BotID), domain.ErrMeetingAlreadyExists)
		}
		return nil, domain.NewPersistenceError("failed to create meeting record", err)
	}

	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	return failures, nil
}

// ListBackfillCandidates returns meetings whose stored transcript is empty and
// whose attempt counter is below ceiling, oldest first.
func (s *SQLiteStore) ListBackfillCandidates(ctx context.Context, ceiling int) (_ []*models.BackfillCandidate, err error) {
	ctx, span := s.startSpan(ctx, "select", "meetings", attribute.Int("ceiling", ceiling))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.bot_id, b.external_id, m.transcript_attempts
		FROM meetings m
		JOIN transcripts t ON t.meeting_id = m.id
		JOIN bots b ON b.id = m.bot_id
		WHERE json_array_length(t.segments) = 0 AND m.transcript_attempts < ?
		ORDER BY m.created_at, m.id`, ceiling)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list backfill candidates", err)
	}
	defer rows.Close()

	var candidates []*models.BackfillCandidate
	for rows.Next() {
		var c models.BackfillCandidate
		if err := rows.Scan(&c.MeetingID, &c.BotID, &c.BotExternalID, &c.TranscriptAttempts); err != nil {
			return nil, domain.NewPersistenceError("failed to scan backfill candidate", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("failed to list backfill candidates", err)
	}

	span.SetAttributes(attribute.Int("db.rows", len(candidates)))
	return candidates, nil
}

// IncrementTranscriptAttempts bumps the attempt counter and returns its new value.
func (s *SQLiteStore) IncrementTranscriptAttempts(ctx context.Context, meetingID string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "update", "meetings", attribute.String("meeting_id", meetingID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return 0, err
	}

	var attempts int
	err = retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`UPDATE meetings SET transcript_attempts = transcript_attempts + 1, updated_at = ?
			WHERE id = ? RETURNING transcript_attempts`,
			s.timestamp(), meetingID,
		).Scan(&attempts)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewNotFoundError(fmt.Sprintf("meeting %s not found", meetingID))
	}
	if err != nil {
		return 0, domain.NewPersistenceError("failed to increment transcript attempts", err)
	}
	return attempts, nil
}

// SaveTranscript stores transcript segments and resets the attempt counter in
// one transaction.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, meetingID string, segments []models.Segment, language string) (err error) {
	ctx, span := s.startSpan(ctx, "update", "transcripts",
		attribute.String("meeting_id", meetingID),
		attribute.Int("segments", len(segments)),
	)
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return err
	}

	encoded, err := marshalSegments(segments)
	if err != nil {
		return domain.NewPersistenceError("failed to encode transcript segments", err)
	}
	if language == "" {
		language = models.UnknownTranscriptLanguage
	}

	var found bool
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, execErr := tx.ExecContext(ctx,
			"UPDATE meetings SET transcript_attempts = 0, updated_at = ? WHERE id = ?", now, meetingID)
		if execErr != nil {
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		found = affected > 0
		if !found {
			return nil
		}

		_, execErr = tx.ExecContext(ctx,
			`INSERT INTO transcripts (meeting_id, segments, language, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(meeting_id) DO UPDATE SET segments = excluded.segments, language = excluded.language, updated_at = excluded.updated_at`,
			meetingID, encoded, language, now,
		)
		return execErr
	})
	if err != nil {
		return domain.NewPersistenceError("failed to save transcript", err)
	}
	if !found {
		return domain.NewNotFoundError(fmt.Sprintf("meeting %s not found", meetingID))
	}
	return nil
}
