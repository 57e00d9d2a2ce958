package domain

import "time"

// Session pairs the acting identity with its bearer credential. At most
// one session is current in a given session context at any time.
type Session struct {
	User  UserIdentity `json:"user"`
	Token string       `json:"token"`
}

// DelegationRecord captures the suspended super-admin session while a
// delegated identity is active. A record is written once at delegation
// start and never mutated; it is consumed and deleted at delegation end.
type DelegationRecord struct {
	OriginalUser  UserIdentity `json:"originalUser"`
	OriginalToken string       `json:"originalToken"`
	StartedAt     time.Time    `json:"startedAt"`
	Stamp         int64        `json:"stamp"`
}
