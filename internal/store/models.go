package store

import "time"

// Stage is the mission lifecycle phase.
type Stage string

const (
	StageSighting Stage = "sighting" // initial attraction
	StageBlanket  Stage = "blanket"  // comfort/bonding
	StagePhysical Stage = "physical" // escalation
)

func (s Stage) Valid() bool {
	switch s {
	case StageSighting, StageBlanket, StagePhysical:
		return true
	}
	return false
}

// Mode is the interaction channel for a mission.
type Mode string

const (
	ModeHome Mode = "home" // online/texting
	ModeAway Mode = "away" // offline/in-person
)

func (m Mode) Valid() bool {
	return m == ModeHome || m == ModeAway
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DisplayName  *string   `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Mission struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	TargetName string    `db:"target_name" json:"target_name"`
	Stage      Stage     `db:"stage" json:"stage"`
	Mode       Mode      `db:"mode" json:"mode"`
	Notes      *string   `db:"notes" json:"notes"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Message is one immutable turn in a mission's conversation. Metadata is a
// JSON object, e.g. {"model": "..."} on assistant turns.
type Message struct {
	ID        string    `db:"id" json:"id"`
	MissionID string    `db:"mission_id" json:"mission_id"`
	Role      Role      `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	Metadata  string    `db:"metadata" json:"metadata"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MuguCheck is an audit row written when an outgoing draft was flagged.
type MuguCheck struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	InputText   string    `db:"input_text" json:"input_text"`
	IsMugu      bool      `db:"is_mugu" json:"is_mugu"`
	Correction  *string   `db:"correction" json:"correction"`
	Explanation *string   `db:"explanation" json:"explanation"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MissionUpdate carries the mutable mission fields; nil means unchanged.
type MissionUpdate struct {
	Stage    *Stage  `json:"stage"`
	Mode     *Mode   `json:"mode"`
	Notes    *string `json:"notes"`
	IsActive *bool   `json:"is_active"`
}
