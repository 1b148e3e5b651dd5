package models

import (
	"time"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string    `gorm:"size:255;not null;unique" json:"email"`
	PasswordHash string    `gorm:"column:password;not null" json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Chat roles accepted from clients.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one role-tagged message. Turns only live for the duration of a request.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (t ChatTurn) Valid() bool {
	switch t.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type Palette struct {
	Name            string   `yaml:"name" json:"name"`
	Colors          []string `yaml:"colors" json:"colors"`
	PriceMultiplier float64  `yaml:"priceMultiplier" json:"priceMultiplier"`
}

// FactoryConfig is the static price table served to the front-end.
type FactoryConfig struct {
	Sizes    map[string]int `yaml:"sizes" json:"sizes"`
	Palettes []Palette      `yaml:"palettes" json:"palettes"`
}
