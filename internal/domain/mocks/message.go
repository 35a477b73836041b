// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockMessage is an inbound NATS message on one of the recording subjects,
// such as a meeting lookup or a content delivery. HasReply and Respond are
// mocked; the last reply payload is kept for inspection.
type MockMessage struct {
	mock.Mock
	subject string
	data    []byte

	mu        sync.Mutex
	lastReply []byte
}

// NewMockMessage returns a message received on subject with payload data.
func NewMockMessage(subject string, data []byte) *MockMessage {
	return &MockMessage{subject: subject, data: data}
}

func (m *MockMessage) Subject() string { return m.subject }

func (m *MockMessage) Data() []byte { return m.data }

func (m *MockMessage) HasReply() bool {
	return m.Called().Bool(0)
}

func (m *MockMessage) Respond(data []byte) error {
	m.mu.Lock()
	m.lastReply = data
	m.mu.Unlock()
	return m.Called(data).Error(0)
}

// LastReply returns the payload of the most recent Respond call, or nil.
func (m *MockMessage) LastReply() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastReply
}
