package models

import "errors"

var (
	ErrNoNickname     = errors.New("nickname is not set")
	ErrInvalidPreset  = errors.New("invalid preset")
	ErrInvalidMinutes = errors.New("custom minutes must be positive")
	ErrInvalidRecord  = errors.New("invalid status record")
	ErrRoomNotFound   = errors.New("room not found")
)
