package models

import (
	"time"
)

// User represents a colony owner known to the identity provider
type User struct {
	CognitoID  string     `json:"cognito_id" gorm:"type:varchar(255);primaryKey"`
	Email      string     `json:"email" gorm:"type:varchar(255);index"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserInfo represents user information from JWT claims
type UserInfo struct {
	CognitoID string `json:"cognito_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

// Owns reports whether the user owns the colony
func (ui *UserInfo) Owns(colony *Colony) bool {
	return colony != nil && ui.CognitoID != "" && colony.UserID == ui.CognitoID
}
