package ports

import "github.com/pkg/errors"

var (
	ErrNotFound       = errors.New("video file not found")
	ErrOpenFailure    = errors.New("could not open video file")
	ErrInvalidInput   = errors.New("invalid input")
	ErrProcessFailure = errors.New("transcode failed")
)
