// Package moderation holds the account-status rules of the game: expiry of bans
// and freezes, the cheat heuristics, the moderation engine with its warning
// escalation, and the gate consulted before every player action.
//
// Everything here is pure: functions take the current time explicitly and return
// new values plus events, never touching storage or presentation.
//
// The rules are advisory when they run inside a player's client. Client state is
// controlled by the player, so the server re-applies them on every write (see
// Engine.MergeClientStatus) and only the server copy is authoritative.
package moderation
