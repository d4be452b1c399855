package core

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/mentor"
	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
)

// muguMinInputLength gates trivially short drafts before spending a
// provider call on them.
const muguMinInputLength = 5

// MuguVerdict is the classification result for a proposed outgoing message.
type MuguVerdict struct {
	IsMugu      bool   `json:"isMugu"`
	Correction  string `json:"correction,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

type MuguService struct {
	store  *store.SQLiteStore
	llm    *provider.Client
	logger *zap.Logger
}

func NewMuguService(db *store.SQLiteStore, llm *provider.Client, logger *zap.Logger) *MuguService {
	return &MuguService{
		store:  db,
		llm:    llm,
		logger: logger,
	}
}

// Check classifies a draft message. It never returns an error: any provider
// or parse failure yields a clean verdict, because blocking the user from
// sending a message is worse than missing a flag. Flagged drafts are
// audit-logged without blocking the caller.
func (s *MuguService) Check(ctx context.Context, userID, inputText string) MuguVerdict {
	if utf8.RuneCountInString(inputText) < muguMinInputLength {
		return MuguVerdict{}
	}

	messages := []provider.Message{
		{Role: string(store.RoleSystem), Content: mentor.MuguDetectorSystemPrompt},
		{Role: string(store.RoleUser), Content: fmt.Sprintf("Analyze this text: %q", inputText)},
	}

	completion, err := s.llm.CompleteWithFallback(ctx, messages, provider.Options{
		Temperature: 0.1,
		JSONObject:  true,
	})
	if err != nil {
		s.logger.Warn("mugu check provider call failed, letting message through", zap.Error(err))
		return MuguVerdict{}
	}

	var verdict MuguVerdict
	if err := json.Unmarshal([]byte(completion.Content), &verdict); err != nil {
		s.logger.Warn("mugu check returned unparsable content, letting message through",
			zap.Error(err))
		return MuguVerdict{}
	}

	if verdict.IsMugu {
		s.auditFlagged(userID, inputText, verdict)
	}
	return verdict
}

// auditFlagged records a flagged draft in a spawned goroutine; like message
// persistence, failure is logged and dropped.
func (s *MuguService) auditFlagged(userID, inputText string, verdict MuguVerdict) {
	go func() {
		chk := &store.MuguCheck{
			UserID:    userID,
			InputText: inputText,
			IsMugu:    true,
		}
		if verdict.Correction != "" {
			chk.Correction = &verdict.Correction
		}
		if verdict.Explanation != "" {
			chk.Explanation = &verdict.Explanation
		}
		if err := s.store.CreateMuguCheck(chk); err != nil {
			s.logger.Error("mugu check audit write failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}()
}
