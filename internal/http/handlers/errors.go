package handlers

import "errors"

var (
	errMissingID       = errors.New("missing id")
	errSessionNotFound = errors.New("session not found")
)
