// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/utils"
)

// participantSet deduplicates participants by external id, falling back to
// the name when either side has no id.
type participantSet struct {
	list   []models.Participant
	byID   map[string]int
	byName map[string]int
}

func newParticipantSet() *participantSet {
	return &participantSet{
		list:   []models.Participant{},
		byID:   make(map[string]int),
		byName: make(map[string]int),
	}
}

func (s *participantSet) find(id, name string) (int, bool) {
	if id != "" {
		if idx, ok := s.byID[id]; ok {
			return idx, true
		}
	}
	if name == "" {
		return 0, false
	}
	idx, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	// Two different ids that share a name are two people.
	existingID := utils.StringValue(s.list[idx].ExternalParticipantID)
	if id != "" && existingID != "" {
		return 0, false
	}
	return idx, true
}

// add merges p into the set. When authoritative is set, p's values win over
// the ones already present.
func (s *participantSet) add(p models.Participant, authoritative bool) {
	p.Name = strings.TrimSpace(p.Name)
	id := utils.StringValue(p.ExternalParticipantID)
	if id == "" && p.Name == "" {
		return
	}

	idx, ok := s.find(id, p.Name)
	if !ok {
		s.list = append(s.list, models.Participant{
			ExternalParticipantID: utils.StringPtr(id),
			Name:                  p.Name,
			IsHost:                p.IsHost,
		})
		s.index(len(s.list) - 1)
		return
	}

	existing := &s.list[idx]
	existingID := utils.StringValue(existing.ExternalParticipantID)
	if authoritative {
		existing.ExternalParticipantID = utils.StringPtr(utils.CoalesceString(id, existingID))
		existing.Name = utils.CoalesceString(p.Name, existing.Name)
		existing.IsHost = p.IsHost
	} else {
		existing.ExternalParticipantID = utils.StringPtr(utils.CoalesceString(existingID, id))
		existing.Name = utils.CoalesceString(existing.Name, p.Name)
		existing.IsHost = existing.IsHost || p.IsHost
	}
	s.index(idx)
}

func (s *participantSet) index(idx int) {
	p := s.list[idx]
	if id := utils.StringValue(p.ExternalParticipantID); id != "" {
		s.byID[id] = idx
	}
	if p.Name != "" {
		if _, taken := s.byName[p.Name]; !taken {
			s.byName[p.Name] = idx
		}
	}
}

// MergeParticipants builds the participant list of a meeting from the
// speakers seen in the transcript and the provider's participant list. The
// provider list wins when both describe the same person.
func MergeParticipants(segments []models.Segment, direct []models.ProviderParticipant) []models.Participant {
	set := newParticipantSet()

	for _, segment := range segments {
		if segment.Participant != nil {
			set.add(models.Participant{
				ExternalParticipantID: utils.StringPtr(segment.Participant.ID),
				Name:                  segment.Participant.Name,
				IsHost:                utils.Value(segment.Participant.IsHost),
			}, false)
			continue
		}
		set.add(models.Participant{
			ExternalParticipantID: utils.StringPtr(segment.SpeakerID),
			Name:                  segment.Speaker,
		}, false)
	}

	for _, p := range direct {
		set.add(models.Participant{
			ExternalParticipantID: utils.StringPtr(p.ID),
			Name:                  p.Name,
			IsHost:                p.IsHost,
		}, true)
	}

	return set.list
}

// SpokenSegments returns the segments that carry at least one non-blank word.
// Silent segments only contribute participants and are not stored.
func SpokenSegments(segments []models.Segment) []models.Segment {
	spoken := make([]models.Segment, 0, len(segments))
	for _, segment := range segments {
		if strings.TrimSpace(segment.Text()) != "" {
			spoken = append(spoken, segment)
		}
	}
	return spoken
}

// TranscriptLanguage is the language of the first segment, or unknown.
func TranscriptLanguage(segments []models.Segment) string {
	if len(segments) == 0 {
		return models.UnknownTranscriptLanguage
	}
	return utils.CoalesceString(segments[0].Language, models.UnknownTranscriptLanguage)
}

// RecordingTiming returns when a recording started and how long it lasted in
// whole seconds. The duration is nil when either bound is missing or the
// bounds are inverted.
func RecordingTiming(rec *models.Recording) (*time.Time, *int64) {
	if rec == nil {
		return nil, nil
	}
	var recordedAt *time.Time
	if rec.StartedAt != nil {
		recordedAt = utils.Ptr(rec.StartedAt.UTC())
	}
	if rec.StartedAt == nil || rec.CompletedAt == nil {
		return recordedAt, nil
	}
	seconds := int64(rec.CompletedAt.Sub(*rec.StartedAt) / time.Second)
	if seconds < 0 {
		return recordedAt, nil
	}
	return recordedAt, &seconds
}
