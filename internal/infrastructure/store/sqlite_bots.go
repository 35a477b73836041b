// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

const botColumns = "id, external_id, calendar_event_id, status, created_at, updated_at"

func scanBot(scanner interface{ Scan(dest ...any) error }) (*models.Bot, error) {
	var (
		bot             models.Bot
		calendarEventID sql.NullString
		status          string
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(&bot.ID, &bot.ExternalID, &calendarEventID, &status, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	bot.CalendarEventID = calendarEventID.String
	bot.Status = models.BotStatus(status)
	bot.CreatedAt = parseTime(createdRaw)
	bot.UpdatedAt = parseTime(updatedRaw)
	return &bot, nil
}

// CreateBot inserts a scheduled bot. Bots are created by the scheduling
// collaborator; a new bot starts out pending unless a status is given.
func (s *SQLiteStore) CreateBot(ctx context.Context, bot *models.Bot) (err error) {
	ctx, span := s.startSpan(ctx, "insert", "bots", attribute.String("bot_id", bot.ID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return err
	}
	if bot.ID == "" || bot.ExternalID == "" {
		return domain.NewValidationError("bot id and external id are required")
	}
	if bot.Status == "" {
		bot.Status = models.BotStatusPending
	}

	now := s.now()
	bot.CreatedAt = now
	bot.UpdatedAt = now

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO bots (id, external_id, calendar_event_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			bot.ID, bot.ExternalID, nullString(bot.CalendarEventID), string(bot.Status), formatTime(now), formatTime(now),
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(fmt.Sprintf("bot %s already exists", bot.ID), err)
		}
		return domain.NewPersistenceError("failed to insert bot", err)
	}
	return nil
}

// GetBot returns the bot with the given id, or nil when it does not exist.
func (s *SQLiteStore) GetBot(ctx context.Context, botID string) (_ *models.Bot, err error) {
	ctx, span := s.startSpan(ctx, "select", "bots", attribute.String("bot_id", botID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+botColumns+" FROM bots WHERE id = ?", botID)
	bot, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("failed to get bot", err)
	}
	return bot, nil
}

// SetBotStatus records the status derived from the provider.
func (s *SQLiteStore) SetBotStatus(ctx context.Context, botID string, status models.BotStatus) (err error) {
	ctx, span := s.startSpan(ctx, "update", "bots",
		attribute.String("bot_id", botID),
		attribute.String("bot_status", string(status)),
	)
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return err
	}

	var affected int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx,
			"UPDATE bots SET status = ?, updated_at = ? WHERE id = ?",
			string(status), s.timestamp(), botID,
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return domain.NewPersistenceError("failed to update bot status", err)
	}
	if affected == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("bot %s not found", botID))
	}
	return nil
}

// ListPendingBots returns every bot whose status is not terminal.
func (s *SQLiteStore) ListPendingBots(ctx context.Context) (_ []*models.Bot, err error) {
	ctx, span := s.startSpan(ctx, "select", "bots")
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	placeholders := make([]string, 0, len(models.TerminalBotStatuses))
	args := make([]any, 0, len(models.TerminalBotStatuses))
	for _, status := range models.TerminalBotStatuses {
		placeholders = append(placeholders, "?")
		args = append(args, string(status))
	}

	query := fmt.Sprintf("SELECT %s FROM bots WHERE status NOT IN (%s) ORDER BY created_at, id",
		botColumns, strings.Join(placeholders, ", "))

	bots, err := s.queryBots(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list pending bots", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(bots)))
	return bots, nil
}

// ListDoneBotsWithoutMeeting returns done bots that have no meeting yet.
func (s *SQLiteStore) ListDoneBotsWithoutMeeting(ctx context.Context) (_ []*models.Bot, err error) {
	ctx, span := s.startSpan(ctx, "select", "bots")
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	query := `SELECT b.id, b.external_id, b.calendar_event_id, b.status, b.created_at, b.updated_at
		FROM bots b
		LEFT JOIN meetings m ON m.bot_id = b.id
		WHERE b.status = ? AND m.id IS NULL
		ORDER BY b.created_at, b.id`

	bots, err := s.queryBots(ctx, query, string(models.BotStatusDone))
	if err != nil {
		return nil, domain.NewPersistenceError("failed to list done bots without meeting", err)
	}
	span.SetAttributes(attribute.Int("db.rows", len(bots)))
	return bots, nil
}

func (s *SQLiteStore) queryBots(ctx context.Context, query string, args ...any) ([]*models.Bot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}

// CreateCalendarEvent inserts or replaces a calendar event.
func (s *SQLiteStore) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) (err error) {
	ctx, span := s.startSpan(ctx, "insert", "calendar_events", attribute.String("calendar_event_id", event.ID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return err
	}
	if event.ID == "" {
		return domain.NewValidationError("calendar event id is required")
	}

	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO calendar_events (id, summary, owning_user_id) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET summary = excluded.summary, owning_user_id = excluded.owning_user_id`,
			event.ID, event.Summary, event.OwningUserID,
		)
		return execErr
	})
	if err != nil {
		return domain.NewPersistenceError("failed to save calendar event", err)
	}
	return nil
}

// GetCalendarEvent returns the calendar event, or nil when it does not exist.
func (s *SQLiteStore) GetCalendarEvent(ctx context.Context, eventID string) (_ *models.CalendarEvent, err error) {
	ctx, span := s.startSpan(ctx, "select", "calendar_events", attribute.String("calendar_event_id", eventID))
	defer func() { err = endSpan(span, err) }()

	if err := s.checkReady(); err != nil {
		return nil, err
	}

	var event models.CalendarEvent
	err = s.db.QueryRowContext(ctx,
		"SELECT id, summary, owning_user_id FROM calendar_events WHERE id = ?", eventID,
	).Scan(&event.ID, &event.Summary, &event.OwningUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewPersistenceError("failed to get calendar event", err)
	}
	return &event, nil
}
