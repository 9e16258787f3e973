// Package state keeps per-user form conversations for the Telegram transport.
// A card with text inputs is asked one field at a time in a private chat; the
// answers plus the card's hidden values become one submission.
package state
