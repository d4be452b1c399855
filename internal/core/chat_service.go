package core

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/mentor"
	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
)

const (
	// historyWindow bounds the turns forwarded to the provider per request.
	historyWindow = 8

	// SilentCoachReply stands in when the provider returns no content.
	SilentCoachReply = "The Head Coach is silent."

	// GeneralMissionID is the sentinel for an unscoped conversation;
	// general chat is never persisted.
	GeneralMissionID = "general"
)

type ChatService struct {
	store  *store.SQLiteStore
	llm    *provider.Client
	logger *zap.Logger
}

func NewChatService(db *store.SQLiteStore, llm *provider.Client, logger *zap.Logger) *ChatService {
	return &ChatService{
		store:  db,
		llm:    llm,
		logger: logger,
	}
}

// Reply runs one chat turn: trims the supplied history to the most recent
// window, prepends the Head Coach instruction for the given mode, calls the
// provider, and returns the reply text. For mission-scoped conversations the
// latest user turn and the assistant turn are persisted without blocking the
// response path.
func (s *ChatService) Reply(ctx context.Context, userID string, history []provider.Message, missionID, mode string) (string, error) {
	if mode == "" {
		mode = string(store.ModeHome)
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	conversation := make([]provider.Message, 0, len(history)+1)
	conversation = append(conversation, provider.Message{
		Role:    string(store.RoleSystem),
		Content: mentor.SystemPromptForMode(mode),
	})
	conversation = append(conversation, history...)

	scoped := missionID != "" && missionID != GeneralMissionID

	if scoped && len(history) > 0 {
		last := history[len(history)-1]
		if last.Role == string(store.RoleUser) {
			s.persistTurn(userID, missionID, store.RoleUser, last.Content, "")
		}
	}

	completion, err := s.llm.CompleteWithFallback(ctx, conversation, provider.Options{
		Temperature: 0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", err
	}

	reply := completion.Content
	if reply == "" {
		reply = SilentCoachReply
	}

	if scoped {
		s.persistTurn(userID, missionID, store.RoleAssistant, reply, completion.Model)
	}

	return reply, nil
}

// persistTurn writes a message row in a spawned goroutine. Failures are
// logged and dropped: persistence is best-effort and never blocks or fails
// the reply. The write verifies mission ownership first so a turn cannot be
// attached to another user's mission.
func (s *ChatService) persistTurn(userID, missionID string, role store.Role, content, model string) {
	go func() {
		mission, err := s.store.GetMission(missionID, userID)
		if err != nil {
			s.logger.Error("mission lookup for message persist failed",
				zap.String("mission_id", missionID), zap.Error(err))
			return
		}
		if mission == nil {
			s.logger.Warn("dropping message for unknown or foreign mission",
				zap.String("mission_id", missionID), zap.String("user_id", userID))
			return
		}

		metadata := ""
		if model != "" {
			raw, _ := json.Marshal(map[string]string{"model": model})
			metadata = string(raw)
		}

		msg := &store.Message{
			MissionID: missionID,
			Role:      role,
			Content:   content,
			Metadata:  metadata,
		}
		if err := s.store.CreateMessage(msg); err != nil {
			s.logger.Error("message persist failed",
				zap.String("mission_id", missionID),
				zap.String("role", string(role)),
				zap.Error(err))
		}
	}()
}
