package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
)

func userTurn(content string) provider.Message {
	return provider.Message{Role: "user", Content: content}
}

func TestReplyScopedMissionPersistsBothTurns(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "THE ANALYSIS: Green Light.", model: "primary-x"}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	user, err := db.CreateUser("recruit@example.com", nil, "hash")
	require.NoError(t, err)
	mission, err := db.CreateMission(user.ID, "Amaka", store.StageSighting, store.ModeHome, nil)
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), user.ID, []provider.Message{userTurn("She said hi")}, mission.ID, "home")
	require.NoError(t, err)
	assert.Equal(t, "THE ANALYSIS: Green Light.", reply)

	calls := stub.calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 2) // system prompt + 1 turn
	assert.Equal(t, "system", calls[0].Messages[0].Role)
	assert.Contains(t, calls[0].Messages[0].Content, "CURRENT OPERATIONAL MODE: HOME")
	assert.Equal(t, "She said hi", calls[0].Messages[1].Content)

	// Both persistence writes are fire-and-forget; wait for them to land.
	require.Eventually(t, func() bool {
		n, err := db.CountMessages(mission.ID)
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)

	messages, err := db.ListMessages(mission.ID)
	require.NoError(t, err)
	var userRows, assistantRows int
	for _, m := range messages {
		switch m.Role {
		case store.RoleUser:
			userRows++
			assert.Equal(t, "She said hi", m.Content)
		case store.RoleAssistant:
			assistantRows++
			assert.Contains(t, m.Metadata, "primary-x")
		}
	}
	assert.Equal(t, 1, userRows)
	assert.Equal(t, 1, assistantRows)
}

func TestReplyGeneralChatNeverPersists(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "General advice."}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	user, err := db.CreateUser("recruit@example.com", nil, "hash")
	require.NoError(t, err)
	mission, err := db.CreateMission(user.ID, "Amaka", store.StageSighting, store.ModeHome, nil)
	require.NoError(t, err)

	for _, sentinel := range []string{GeneralMissionID, ""} {
		reply, err := svc.Reply(context.Background(), user.ID, []provider.Message{userTurn("How do I open?")}, sentinel, "home")
		require.NoError(t, err)
		assert.Equal(t, "General advice.", reply)
	}

	time.Sleep(100 * time.Millisecond)
	n, err := db.CountMessages(mission.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplyTruncatesHistoryToWindow(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "ok"}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	history := make([]provider.Message, 0, 12)
	for i := 0; i < 12; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, provider.Message{Role: role, Content: strings.Repeat("x", i+1)})
	}

	_, err := svc.Reply(context.Background(), "user-1", history, GeneralMissionID, "away")
	require.NoError(t, err)

	calls := stub.calls()
	require.Len(t, calls, 1)
	// min(12, 8) + system prompt
	assert.Len(t, calls[0].Messages, 9)
	// The window keeps the most recent turns.
	assert.Equal(t, strings.Repeat("x", 12), calls[0].Messages[8].Content)
	assert.Contains(t, calls[0].Messages[0].Content, "CURRENT OPERATIONAL MODE: AWAY")
}

func TestReplyShortHistoryKeptWhole(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "ok"}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	_, err := svc.Reply(context.Background(), "user-1",
		[]provider.Message{userTurn("one"), {Role: "assistant", Content: "two"}, userTurn("three")},
		GeneralMissionID, "")
	require.NoError(t, err)

	calls := stub.calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Messages, 4)
	// Empty mode defaults to HOME.
	assert.Contains(t, calls[0].Messages[0].Content, "CURRENT OPERATIONAL MODE: HOME")
}

func TestReplyEmptyCompletionGetsPlaceholder(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: ""}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	reply, err := svc.Reply(context.Background(), "user-1", []provider.Message{userTurn("hello?")}, GeneralMissionID, "home")
	require.NoError(t, err)
	assert.Equal(t, SilentCoachReply, reply)
}

func TestReplyUsesFallbackModelAndTagsIt(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "Fallback wisdom.", failPrimary: true}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	user, err := db.CreateUser("recruit@example.com", nil, "hash")
	require.NoError(t, err)
	mission, err := db.CreateMission(user.ID, "Amaka", store.StageSighting, store.ModeHome, nil)
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), user.ID, []provider.Message{userTurn("She said hi")}, mission.ID, "home")
	require.NoError(t, err)
	assert.Equal(t, "Fallback wisdom.", reply)
	assert.Equal(t, 2, stub.callCount())

	require.Eventually(t, func() bool {
		messages, err := db.ListMessages(mission.ID)
		if err != nil {
			return false
		}
		for _, m := range messages {
			if m.Role == store.RoleAssistant && strings.Contains(m.Metadata, "fallback") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReplyDoesNotPersistWhenLastTurnIsAssistant(t *testing.T) {
	db := newTestStore(t)
	stub := &stubProvider{content: "ok"}
	svc := NewChatService(db, newStubClient(t, stub), zap.NewNop())

	user, err := db.CreateUser("recruit@example.com", nil, "hash")
	require.NoError(t, err)
	mission, err := db.CreateMission(user.ID, "Amaka", store.StageSighting, store.ModeHome, nil)
	require.NoError(t, err)

	_, err = svc.Reply(context.Background(), user.ID,
		[]provider.Message{{Role: "assistant", Content: "previous reply"}}, mission.ID, "home")
	require.NoError(t, err)

	// Only the assistant reply should land; the trailing assistant turn from
	// history is not re-persisted as a user row.
	require.Eventually(t, func() bool {
		n, err := db.CountMessages(mission.ID)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	messages, err := db.ListMessages(mission.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAssistant, messages[0].Role)
}
