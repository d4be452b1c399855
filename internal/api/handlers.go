package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/manunited/headcoach/internal/auth"
	"github.com/manunited/headcoach/internal/config"
	"github.com/manunited/headcoach/internal/core"
	"github.com/manunited/headcoach/internal/provider"
	"github.com/manunited/headcoach/internal/store"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID extracts the authenticated user's ID from a request context.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

type APIHandler struct {
	cfg      *config.Config
	accounts *core.AccountService
	missions *core.MissionService
	chat     *core.ChatService
	mugu     *core.MuguService
	logger   *zap.Logger
}

func NewAPIHandler(cfg *config.Config, accounts *core.AccountService, missions *core.MissionService, chat *core.ChatService, mugu *core.MuguService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		accounts: accounts,
		missions: missions,
		chat:     chat,
		mugu:     mugu,
		logger:   logger,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, errorResponse{Error: message, Details: details})
}

// AuthMiddleware validates the Bearer token and resolves the user before any
// handler work happens. Every failure is a 401.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateToken(tokenString, []byte(h.cfg.JWTSecret))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")
			return
		}

		user, err := h.accounts.GetUserByID(userID)
		if err != nil {
			h.logger.Error("failed to resolve user from token", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to process user identity", "")
			return
		}
		if user == nil {
			respondError(w, http.StatusUnauthorized, "Unauthorized", "User not found")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required", "")
		return
	}

	user, err := h.accounts.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "Email already registered", "")
			return
		}
		h.logger.Error("failed to register user", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create account", "")
		return
	}

	token, err := auth.GenerateToken(user.ID, []byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}
	respondJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required", "")
		return
	}

	user, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials", "")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to log in", "")
		return
	}

	token, err := auth.GenerateToken(user.ID, []byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("failed to generate token", zap.String("user_id", user.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate token", "")
		return
	}
	respondJSON(w, http.StatusOK, TokenResponse{Token: token})
}

type ChatRequest struct {
	Messages  []provider.Message `json:"messages"`
	MissionID *string            `json:"missionId"`
	Mode      string             `json:"mode"`
}

type ChatResponse struct {
	Content string `json:"content"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	// Credentials check comes before any provider work so the failure mode
	// is a clear configuration hint rather than a network error.
	if h.cfg.ProviderAPIKey == "" {
		h.logger.Error("chat request with no provider API key configured")
		respondError(w, http.StatusInternalServerError,
			"Head Coach offline (Missing API Key).",
			"Set PROVIDER_API_KEY in the environment.")
		return
	}

	// A malformed or missing body degrades to an empty conversation instead
	// of a hard failure.
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = ChatRequest{}
	}

	missionID := ""
	if req.MissionID != nil {
		missionID = *req.MissionID
	}

	content, err := h.chat.Reply(r.Context(), userID, req.Messages, missionID, req.Mode)
	if err != nil {
		h.logger.Error("chat turn failed", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError,
			"The Head Coach encountered a tactical error.", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ChatResponse{Content: content})
}

type MuguCheckRequest struct {
	InputText string `json:"inputText"`
}

// MuguCheckHandler always resolves 200 for authenticated callers; internal
// failures come back as a clean verdict.
func (h *APIHandler) MuguCheckHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req MuguCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = MuguCheckRequest{}
	}

	verdict := h.mugu.Check(r.Context(), userID, req.InputText)
	respondJSON(w, http.StatusOK, verdict)
}

type CreateMissionRequest struct {
	TargetName string      `json:"target_name"`
	Stage      store.Stage `json:"stage,omitempty"`
	Mode       store.Mode  `json:"mode,omitempty"`
	Notes      *string     `json:"notes,omitempty"`
}

func (h *APIHandler) CreateMissionHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req CreateMissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	mission, err := h.missions.CreateMission(userID, req.TargetName, req.Stage, req.Mode, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingTarget),
			errors.Is(err, core.ErrInvalidStage),
			errors.Is(err, core.ErrInvalidMode):
			respondError(w, http.StatusBadRequest, err.Error(), "")
		default:
			h.logger.Error("failed to create mission", zap.String("user_id", userID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to create mission", "")
		}
		return
	}
	respondJSON(w, http.StatusCreated, mission)
}

func (h *APIHandler) ListMissionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	missions, err := h.missions.ListMissions(userID)
	if err != nil {
		h.logger.Error("failed to list missions", zap.String("user_id", userID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list missions", "")
		return
	}
	if missions == nil {
		missions = []store.Mission{}
	}
	respondJSON(w, http.StatusOK, missions)
}

func (h *APIHandler) GetMissionHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	missionID := chi.URLParam(r, "missionID")

	mission, err := h.missions.GetMission(missionID, userID)
	if err != nil {
		h.logger.Error("failed to get mission", zap.String("mission_id", missionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get mission", "")
		return
	}
	if mission == nil {
		respondError(w, http.StatusNotFound, "Mission not found", "")
		return
	}
	respondJSON(w, http.StatusOK, mission)
}

func (h *APIHandler) UpdateMissionHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	missionID := chi.URLParam(r, "missionID")

	var upd store.MissionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	mission, err := h.missions.UpdateMission(missionID, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidStage), errors.Is(err, core.ErrInvalidMode):
			respondError(w, http.StatusBadRequest, err.Error(), "")
		default:
			h.logger.Error("failed to update mission", zap.String("mission_id", missionID), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to update mission", "")
		}
		return
	}
	if mission == nil {
		respondError(w, http.StatusNotFound, "Mission not found", "")
		return
	}
	respondJSON(w, http.StatusOK, mission)
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	missionID := chi.URLParam(r, "missionID")

	mission, err := h.missions.GetMission(missionID, userID)
	if err != nil {
		h.logger.Error("failed to get mission", zap.String("mission_id", missionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to get mission", "")
		return
	}
	if mission == nil {
		respondError(w, http.StatusNotFound, "Mission not found", "")
		return
	}

	messages, err := h.missions.ListMessages(missionID, userID)
	if err != nil {
		h.logger.Error("failed to list messages", zap.String("mission_id", missionID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list messages", "")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	respondJSON(w, http.StatusOK, messages)
}
