package ports

import (
	"context"
	"time"

	"github.com/forPelevin/fadecut/internal/types"
)

// Transcoder runs the external transcoding tool. Every call blocks until the
// child process exits.
type Transcoder interface {
	TrimWithFades(ctx context.Context, req types.TrimRequest) error
	CopyTrim(ctx context.Context, req types.TrimRequest) error
	Concat(ctx context.Context, listFile, outMP4 string) error
}

type Decoder interface {
	Open(ctx context.Context, path string) (VideoHandle, error)
}

// VideoHandle is an opened source video. ReadFrame returns packed RGB24.
type VideoHandle interface {
	Info() types.VideoInfo
	ReadFrame(ctx context.Context, at time.Duration) (types.Frame, error)
	Close() error
}
