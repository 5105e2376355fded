package engine

import "errors"

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrEncodeFailed     = errors.New("failed to write recording")
)
