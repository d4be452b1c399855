package core

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/store"
)

var (
	ErrMissingTarget = errors.New("mission target name is required")
	ErrInvalidStage  = errors.New("invalid mission stage")
	ErrInvalidMode   = errors.New("invalid mission mode")
)

type MissionService struct {
	store  *store.SQLiteStore
	logger *zap.Logger
}

func NewMissionService(db *store.SQLiteStore, logger *zap.Logger) *MissionService {
	return &MissionService{store: db, logger: logger}
}

// CreateMission validates the enumerations and inserts a new mission.
// Stage defaults to sighting, mode to home.
func (s *MissionService) CreateMission(userID, targetName string, stage store.Stage, mode store.Mode, notes *string) (*store.Mission, error) {
	targetName = strings.TrimSpace(targetName)
	if targetName == "" {
		return nil, ErrMissingTarget
	}
	if stage == "" {
		stage = store.StageSighting
	}
	if mode == "" {
		mode = store.ModeHome
	}
	if !stage.Valid() {
		return nil, ErrInvalidStage
	}
	if !mode.Valid() {
		return nil, ErrInvalidMode
	}

	mission, err := s.store.CreateMission(userID, targetName, stage, mode, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}
	s.logger.Info("mission created",
		zap.String("mission_id", mission.ID), zap.String("user_id", userID))
	return mission, nil
}

func (s *MissionService) ListMissions(userID string) ([]store.Mission, error) {
	return s.store.ListMissions(userID)
}

// GetMission returns nil without error when the mission does not exist or
// belongs to someone else.
func (s *MissionService) GetMission(missionID, userID string) (*store.Mission, error) {
	return s.store.GetMission(missionID, userID)
}

func (s *MissionService) UpdateMission(missionID, userID string, upd store.MissionUpdate) (*store.Mission, error) {
	if upd.Stage != nil && !upd.Stage.Valid() {
		return nil, ErrInvalidStage
	}
	if upd.Mode != nil && !upd.Mode.Valid() {
		return nil, ErrInvalidMode
	}
	return s.store.UpdateMission(missionID, userID, upd)
}

// ListMessages returns the mission's conversation in creation order, or
// (nil, nil) when the mission is not visible to the user.
func (s *MissionService) ListMessages(missionID, userID string) ([]store.Message, error) {
	mission, err := s.store.GetMission(missionID, userID)
	if err != nil {
		return nil, err
	}
	if mission == nil {
		return nil, nil
	}
	return s.store.ListMessages(missionID)
}
