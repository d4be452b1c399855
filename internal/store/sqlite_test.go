package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	user, err := s.CreateUser(email, nil, "hash")
	require.NoError(t, err)
	return user
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	name := "The Recruit"
	user, err := s.CreateUser("recruit@example.com", &name, "hashed-pw")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)

	byEmail, err := s.GetUserByEmail("recruit@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	require.NotNil(t, byEmail.DisplayName)
	assert.Equal(t, "The Recruit", *byEmail.DisplayName)

	byID, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "recruit@example.com", byID.Email)

	missing, err := s.GetUserByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "dup@example.com")

	_, err := s.CreateUser("dup@example.com", nil, "hash")
	assert.Error(t, err)
}

func TestMissionCRUD(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "recruit@example.com")

	mission, err := s.CreateMission(user.ID, "Amaka", StageSighting, ModeHome, nil)
	require.NoError(t, err)
	assert.True(t, mission.IsActive)
	assert.Equal(t, StageSighting, mission.Stage)

	got, err := s.GetMission(mission.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Amaka", got.TargetName)

	// A mission is invisible to anyone but its owner.
	other := createTestUser(t, s, "other@example.com")
	hidden, err := s.GetMission(mission.ID, other.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)

	stage := StageBlanket
	notes := "moved to comfort building"
	updated, err := s.UpdateMission(mission.ID, user.ID, MissionUpdate{Stage: &stage, Notes: &notes})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StageBlanket, updated.Stage)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, ModeHome, updated.Mode) // unchanged

	// Updating a foreign mission is a no-op returning nil.
	mode := ModeAway
	noRow, err := s.UpdateMission(mission.ID, other.ID, MissionUpdate{Mode: &mode})
	require.NoError(t, err)
	assert.Nil(t, noRow)
}

func TestListMissionsOrderedByUpdate(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "recruit@example.com")

	first, err := s.CreateMission(user.ID, "First", StageSighting, ModeHome, nil)
	require.NoError(t, err)
	_, err = s.CreateMission(user.ID, "Second", StageSighting, ModeAway, nil)
	require.NoError(t, err)

	// Touching the older mission moves it back to the front.
	stage := StagePhysical
	_, err = s.UpdateMission(first.ID, user.ID, MissionUpdate{Stage: &stage})
	require.NoError(t, err)

	missions, err := s.ListMissions(user.ID)
	require.NoError(t, err)
	require.Len(t, missions, 2)
	assert.Equal(t, "First", missions[0].TargetName)
}

func TestInvalidEnumValuesRejectedBySchema(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "recruit@example.com")

	_, err := s.CreateMission(user.ID, "Amaka", Stage("offside"), ModeHome, nil)
	assert.Error(t, err)

	_, err = s.CreateMission(user.ID, "Amaka", StageSighting, Mode("stadium"), nil)
	assert.Error(t, err)

	mission, err := s.CreateMission(user.ID, "Amaka", StageSighting, ModeHome, nil)
	require.NoError(t, err)

	err = s.CreateMessage(&Message{MissionID: mission.ID, Role: Role("referee"), Content: "hi"})
	assert.Error(t, err)
}

func TestMessagesOrderedAndDefaulted(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "recruit@example.com")
	mission, err := s.CreateMission(user.ID, "Amaka", StageSighting, ModeHome, nil)
	require.NoError(t, err)

	userMsg := &Message{MissionID: mission.ID, Role: RoleUser, Content: "She said hi"}
	require.NoError(t, s.CreateMessage(userMsg))
	assert.NotEmpty(t, userMsg.ID)
	assert.Equal(t, "{}", userMsg.Metadata)

	coachMsg := &Message{
		MissionID: mission.ID,
		Role:      RoleAssistant,
		Content:   "THE ANALYSIS: ...",
		Metadata:  `{"model":"llama-3.3-70b-versatile"}`,
	}
	require.NoError(t, s.CreateMessage(coachMsg))

	messages, err := s.ListMessages(mission.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Contains(t, messages[1].Metadata, "llama-3.3-70b-versatile")

	n, err := s.CountMessages(mission.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMuguChecks(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "recruit@example.com")

	correction := "You pick the place. Friday."
	explanation := "Seeking permission hands over the frame."
	require.NoError(t, s.CreateMuguCheck(&MuguCheck{
		UserID:      user.ID,
		InputText:   "please can we meet, if that's ok with you?",
		IsMugu:      true,
		Correction:  &correction,
		Explanation: &explanation,
	}))

	checks, err := s.ListMuguChecks(user.ID)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].IsMugu)
	require.NotNil(t, checks[0].Correction)
	assert.Equal(t, correction, *checks[0].Correction)
}
