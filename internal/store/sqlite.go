package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
)

type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSQLiteStore(dataSourceName string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; a second pooled connection would only
	// produce "database is locked" errors.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err = s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        email TEXT UNIQUE NOT NULL,
        display_name TEXT,
        password_hash TEXT NOT NULL,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS missions (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        target_name TEXT NOT NULL,
        stage TEXT NOT NULL DEFAULT 'sighting' CHECK (stage IN ('sighting', 'blanket', 'physical')),
        mode TEXT NOT NULL DEFAULT 'home' CHECK (mode IN ('home', 'away')),
        notes TEXT,
        is_active BOOLEAN NOT NULL DEFAULT TRUE,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        mission_id TEXT NOT NULL,
        role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
        content TEXT NOT NULL,
        metadata TEXT NOT NULL DEFAULT '{}',
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (mission_id) REFERENCES missions (id)
    );

    CREATE TABLE IF NOT EXISTS mugu_checks (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        input_text TEXT NOT NULL,
        is_mugu BOOLEAN NOT NULL,
        correction TEXT,
        explanation TEXT,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(email string, displayName *string, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.Exec(
		"INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.Get(&user, "SELECT * FROM users WHERE email = ?", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	var user User
	err := s.db.Get(&user, "SELECT * FROM users WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user by id: %w", err)
	}
	return &user, nil
}

// Mission methods

func (s *SQLiteStore) CreateMission(userID, targetName string, stage Stage, mode Mode, notes *string) (*Mission, error) {
	now := time.Now().UTC()
	mission := &Mission{
		ID:         uuid.NewString(),
		UserID:     userID,
		TargetName: targetName,
		Stage:      stage,
		Mode:       mode,
		Notes:      notes,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.Exec(
		`INSERT INTO missions (id, user_id, target_name, stage, mode, notes, is_active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mission.ID, mission.UserID, mission.TargetName, mission.Stage, mission.Mode,
		mission.Notes, mission.IsActive, mission.CreatedAt, mission.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mission: %w", err)
	}
	return mission, nil
}

func (s *SQLiteStore) GetMission(missionID, userID string) (*Mission, error) {
	var mission Mission
	err := s.db.Get(&mission, "SELECT * FROM missions WHERE id = ? AND user_id = ?", missionID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found or not owned by user
		}
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return &mission, nil
}

func (s *SQLiteStore) ListMissions(userID string) ([]Mission, error) {
	var missions []Mission
	err := s.db.Select(&missions, "SELECT * FROM missions WHERE user_id = ? ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query missions: %w", err)
	}
	return missions, nil
}

// UpdateMission applies the non-nil fields of upd and bumps updated_at.
// Returns the updated row, or nil when the mission does not exist or is not
// owned by the user.
func (s *SQLiteStore) UpdateMission(missionID, userID string, upd MissionUpdate) (*Mission, error) {
	res, err := s.db.Exec(
		`UPDATE missions SET
            stage = COALESCE(?, stage),
            mode = COALESCE(?, mode),
            notes = COALESCE(?, notes),
            is_active = COALESCE(?, is_active),
            updated_at = ?
         WHERE id = ? AND user_id = ?`,
		upd.Stage, upd.Mode, upd.Notes, upd.IsActive, time.Now().UTC(), missionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update mission: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, nil
	}
	return s.GetMission(missionID, userID)
}

// Message methods

// CreateMessage inserts an immutable conversation turn. ID and timestamp are
// assigned here; an empty metadata field becomes the empty JSON object.
func (s *SQLiteStore) CreateMessage(msg *Message) error {
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	if msg.Metadata == "" {
		msg.Metadata = "{}"
	}

	_, err := s.db.Exec(
		"INSERT INTO messages (id, mission_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.MissionID, msg.Role, msg.Content, msg.Metadata, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(missionID string) ([]Message, error) {
	var messages []Message
	err := s.db.Select(&messages,
		"SELECT * FROM messages WHERE mission_id = ? ORDER BY created_at ASC, rowid ASC", missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return messages, nil
}

func (s *SQLiteStore) CountMessages(missionID string) (int, error) {
	var n int
	err := s.db.Get(&n, "SELECT COUNT(*) FROM messages WHERE mission_id = ?", missionID)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Mugu check methods

func (s *SQLiteStore) CreateMuguCheck(chk *MuguCheck) error {
	chk.ID = uuid.NewString()
	chk.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO mugu_checks (id, user_id, input_text, is_mugu, correction, explanation, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		chk.ID, chk.UserID, chk.InputText, chk.IsMugu, chk.Correction, chk.Explanation, chk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mugu check: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMuguChecks(userID string) ([]MuguCheck, error) {
	var checks []MuguCheck
	err := s.db.Select(&checks,
		"SELECT * FROM mugu_checks WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mugu checks: %w", err)
	}
	return checks, nil
}
