package alohaplay

import "github.com/pkg/errors"

var (
	// ErrInvalidState is returned by transport operations that don't apply
	// in the player's current state.
	ErrInvalidState = errors.New("invalid player state")

	// ErrNotOpen is returned when there is no media to operate on.
	ErrNotOpen = errors.New("no media open")

	errNoStreams = errors.New("no playable streams")
)
