// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirectory() *MemberDirectory {
	return NewMemberDirectory(map[string]Member{
		"M1001": {
			MemberID:     "M1001",
			Name:         "Sarah Chen",
			PolicyNumber: "POL-88421",
			PolicyType:   "auto",
		},
	})
}

func TestSessionTurnCountTracksUserMessages(t *testing.T) {
	session := newSession(Member{MemberID: "M1001", Name: "Sarah Chen"})

	session.AddMessage(RoleUser, "hello")
	session.AddMessage(RoleAssistant, "hi there")
	session.AddMessage(RoleUser, "what is my deductible?")
	session.AddMessage(RoleAssistant, "it is $500")

	assert.Equal(t, 2, session.TurnCount)
	assert.Len(t, session.Messages, 4)
}

func TestSessionCurrentSentimentDefaultsNeutral(t *testing.T) {
	session := newSession(Member{MemberID: "M1001"})

	assert.Equal(t, SentimentNeutral, session.CurrentSentiment())

	session.SentimentHistory = append(session.SentimentHistory, SentimentNeutral, SentimentFrustrated)
	assert.Equal(t, SentimentFrustrated, session.CurrentSentiment())
}

func TestSessionHistoryReturnsCopy(t *testing.T) {
	session := newSession(Member{MemberID: "M1001"})
	session.AddMessage(RoleUser, "hello")

	history := session.History()
	history[0].Content = "mutated"

	assert.Equal(t, "hello", session.Messages[0].Content)
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	session, err := store.Create("M1001")
	require.NoError(t, err)
	assert.Regexp(t, `^sess_[0-9a-f]{12}$`, session.SessionID)
	assert.Equal(t, "Sarah Chen", session.Member.Name)

	got, err := store.Get(session.SessionID)
	require.NoError(t, err)
	assert.Same(t, session, got)
}

func TestMemoryStoreUnknownMember(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	_, err := store.Create("M9999")

	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	_, err := store.Get("sess_missing")

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	session, err := store.Create("M1001")
	require.NoError(t, err)

	session.LastActive = time.Now().UTC().Add(-31 * time.Minute)

	_, err = store.Get(session.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The expired session was evicted, not just hidden.
	assert.Empty(t, store.List())
}

func TestMemoryStoreActivityExtendsLifetime(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	session, err := store.Create("M1001")
	require.NoError(t, err)

	session.LastActive = time.Now().UTC().Add(-29 * time.Minute)
	session.AddMessage(RoleUser, "still here")

	got, err := store.Get(session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TurnCount)
}

func TestMemoryStoreListSkipsExpired(t *testing.T) {
	store := NewMemoryStore(testDirectory(), 30*time.Minute)

	live, err := store.Create("M1001")
	require.NoError(t, err)
	expired, err := store.Create("M1001")
	require.NoError(t, err)
	expired.LastActive = time.Now().UTC().Add(-31 * time.Minute)

	summaries := store.List()

	require.Len(t, summaries, 1)
	assert.Equal(t, live.SessionID, summaries[0].SessionID)
	assert.Equal(t, "Sarah Chen", summaries[0].MemberName)
}
