// Package store persists identity links and chat maps in PostgreSQL.
package store

import (
	"errors"
	"time"
)

// Errors returned by store lookups and inserts.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrDuplicateLink = errors.New("store: identity link already exists")
	ErrDuplicateChat = errors.New("store: chat map already exists")
)

// Link associates a Meower username with a Revolt user id. Links are
// created once on successful handshake completion and never mutated.
type Link struct {
	ID             string
	MeowerUsername string
	RevoltUserID   string
	// Avatar is the Meower profile picture reference used to build the
	// masquerade avatar URL.
	Avatar    string
	CreatedAt time.Time
}

// ChatMap associates a Meower chat name with a Revolt channel id. One
// Meower chat may map to many Revolt channels; a Revolt channel belongs
// to exactly one Meower chat.
type ChatMap struct {
	ID            string
	MeowerChat    string
	RevoltChannel string
	CreatedAt     time.Time
}
