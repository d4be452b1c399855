// Package client is the application-session side of the chat flow: it owns
// the auth token, the mission list, the active mission, and the append-only
// turn list a view renders from. It is an explicitly passed object with a
// login/sign-out lifecycle, not ambient state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/core"
	"github.com/manunited/headcoach/internal/store"
)

const (
	// chatTimeout gives the coach time to generate deep tactical advice.
	chatTimeout = 20 * time.Second
	// checkTimeout bounds the pre-send mugu check; expiry lets the draft
	// through unchecked.
	checkTimeout = 8 * time.Second
	// checkMinLength skips the pre-send check for short drafts ("Hi" etc).
	checkMinLength = 10
)

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Session struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	token    string
	missions []store.Mission
	active   *store.Mission
	turns    []Turn
}

func NewSession(baseURL string, logger *zap.Logger) *Session {
	return &Session{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	return s.do(ctx, http.MethodPost, path, body, out)
}

func (s *Session) get(ctx context.Context, path string, out any) error {
	return s.do(ctx, http.MethodGet, path, nil, out)
}

func (s *Session) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the session token.
func (s *Session) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := s.post(ctx, "/api/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()
	return nil
}

func (s *Session) Register(ctx context.Context, email, password string, displayName *string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := s.post(ctx, "/api/register", map[string]any{
		"email":        email,
		"password":     password,
		"display_name": displayName,
	}, &resp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = resp.Token
	s.mu.Unlock()
	return nil
}

// SignOut tears the session down: token, mission list, active mission and
// turns are all cleared.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.missions = nil
	s.active = nil
	s.turns = nil
}

// LoadMissions seeds (or refreshes) the mission list.
func (s *Session) LoadMissions(ctx context.Context) ([]store.Mission, error) {
	var missions []store.Mission
	if err := s.get(ctx, "/api/missions", &missions); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.missions = missions
	s.mu.Unlock()
	return missions, nil
}

func (s *Session) CreateMission(ctx context.Context, targetName string, stage store.Stage, mode store.Mode, notes *string) (*store.Mission, error) {
	var mission store.Mission
	err := s.post(ctx, "/api/missions", map[string]any{
		"target_name": targetName,
		"stage":       stage,
		"mode":        mode,
		"notes":       notes,
	}, &mission)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.missions = append([]store.Mission{mission}, s.missions...)
	s.mu.Unlock()
	return &mission, nil
}

// SelectMission switches the active mission. The turn list is cleared before
// the load so a slow fetch never shows the previous mission's conversation.
func (s *Session) SelectMission(ctx context.Context, missionID string) error {
	s.mu.Lock()
	s.turns = nil
	s.active = nil
	for i := range s.missions {
		if s.missions[i].ID == missionID {
			s.active = &s.missions[i]
			break
		}
	}
	s.mu.Unlock()

	var messages []store.Message
	if err := s.get(ctx, "/api/missions/"+missionID+"/messages", &messages); err != nil {
		return err
	}

	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: string(m.Role), Content: m.Content})
	}
	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
	return nil
}

// SelectGeneral switches to the unscoped headquarters conversation.
func (s *Session) SelectGeneral() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.turns = nil
}

func (s *Session) Missions() []store.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Mission, len(s.missions))
	copy(out, s.missions)
	return out
}

func (s *Session) ActiveMission() *store.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	m := *s.active
	return &m
}

// Turns returns a copy of the conversation as currently rendered.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) activeMode() store.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return s.active.Mode
	}
	return store.ModeHome
}

// ShouldCheck reports whether a draft warrants a pre-send mugu check: only
// texting-mode conversations, and only drafts long enough to carry intent.
func (s *Session) ShouldCheck(draft string) bool {
	return s.activeMode() == store.ModeHome && utf8.RuneCountInString(draft) > checkMinLength
}

// CheckDraft runs the pre-send mugu check with its own short timeout. Any
// failure, including timeout, lets the draft through unchecked.
func (s *Session) CheckDraft(ctx context.Context, draft string) core.MuguVerdict {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var verdict core.MuguVerdict
	err := s.post(ctx, "/api/mugu-check", map[string]string{"inputText": draft}, &verdict)
	if err != nil {
		s.logger.Warn("mugu check timed out or failed, sending unchecked", zap.Error(err))
		return core.MuguVerdict{}
	}
	return verdict
}

// Send posts a chat turn. The user's turn is appended optimistically before
// the round trip; on failure it stays in the view (the error is surfaced
// instead of rolling back).
func (s *Session) Send(ctx context.Context, content string) (string, error) {
	s.mu.Lock()
	s.turns = append(s.turns, Turn{Role: string(store.RoleUser), Content: content})
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	missionID := core.GeneralMissionID
	mode := store.ModeHome
	if s.active != nil {
		missionID = s.active.ID
		mode = s.active.Mode
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	var resp struct {
		Content string `json:"content"`
	}
	err := s.post(ctx, "/api/chat", map[string]any{
		"messages":  turns,
		"missionId": missionID,
		"mode":      mode,
	}, &resp)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.turns = append(s.turns, Turn{Role: string(store.RoleAssistant), Content: resp.Content})
	s.mu.Unlock()
	return resp.Content, nil
}
