// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "strings"

// Segment is one speaker turn of a transcript in its canonical in-process shape.
// Provider payload variants are normalized into this shape at the client boundary.
type Segment struct {
	Speaker     string              `json:"speaker"`
	SpeakerID   string              `json:"speaker_id,omitempty"`
	Participant *SegmentParticipant `json:"participant,omitempty"`
	Words       []Word              `json:"words"`
	Language    string              `json:"language,omitempty"`
}

// SegmentParticipant is the structured speaker object some payloads carry per segment.
type SegmentParticipant struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	IsHost *bool  `json:"is_host,omitempty"`
}

// Word is a single transcribed word.
type Word struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

// Text joins the words of a segment with spaces.
func (s Segment) Text() string {
	words := make([]string, 0, len(s.Words))
	for _, w := range s.Words {
		words = append(words, w.Text)
	}
	return strings.Join(words, " ")
}
