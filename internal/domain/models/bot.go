// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// BotStatus is the locally tracked status of a recording bot. Provider status codes are
// stored verbatim so the set is open; the constants below are the ones the service reasons about.
type BotStatus string

const (
	BotStatusPending         BotStatus = "pending"
	BotStatusReady           BotStatus = "ready"
	BotStatusJoiningCall     BotStatus = "joining_call"
	BotStatusInWaitingRoom   BotStatus = "in_waiting_room"
	BotStatusInCall          BotStatus = "in_call"
	BotStatusInCallRecording BotStatus = "in_call_recording"
	BotStatusCallEnded       BotStatus = "call_ended"
	BotStatusProcessing      BotStatus = "processing"
	BotStatusDone            BotStatus = "done"
	BotStatusFatal           BotStatus = "fatal"
	BotStatusPollingError    BotStatus = "polling_error"
)

// TerminalBotStatuses are the statuses the status loop no longer polls.
var TerminalBotStatuses = []BotStatus{BotStatusDone, BotStatusFatal}

// IsTerminal reports whether the status ends the bot lifecycle.
func (s BotStatus) IsTerminal() bool {
	for _, terminal := range TerminalBotStatuses {
		if s == terminal {
			return true
		}
	}
	return false
}

// Bot is a provider-side recording agent scheduled for a calendar event, tracked by its external id.
type Bot struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"external_id"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
	Status          BotStatus `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CalendarEvent is the read-only calendar context a bot was scheduled from.
type CalendarEvent struct {
	ID           string `json:"id"`
	Summary      string `json:"summary"`
	OwningUserID string `json:"owning_user_id"`
}
