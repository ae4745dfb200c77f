package models

// Action types accepted by a running session.
const (
	ActionDeclaration = "declaration"
	ActionChallenge   = "challenge"
	ActionPass        = "pass"
)

// GameAction captures a player's in-game move. HandType and Cards are only
// read for declarations.
type GameAction struct {
	ActionType string `json:"action"`
	HandType   string `json:"declarationType,omitempty"`
	Cards      []Card `json:"declaredCards,omitempty"`
}
