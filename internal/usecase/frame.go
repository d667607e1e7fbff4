package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/fadecut/internal/domain/timecode"
	"github.com/forPelevin/fadecut/internal/types"
)

// FrameAt returns the preview frame at tc. Preview is advisory: bad
// timecodes, out-of-range times, a closed session and decode errors all
// report false instead of an error.
func (p *Processor) FrameAt(ctx context.Context, tc string) (types.Frame, bool) {
	if p.handle == nil {
		return types.Frame{}, false
	}
	sec, err := timecode.ToSeconds(tc)
	if err != nil {
		p.log.Debug("frame: bad timecode", zap.String("timecode", tc), zap.Error(err))
		return types.Frame{}, false
	}
	if sec < 0 || sec >= p.info.Duration {
		return types.Frame{}, false
	}

	key := int(sec * p.info.FPS)
	if fr, ok := p.cache.Get(key); ok {
		return fr, true
	}

	at := time.Duration(sec*1000) * time.Millisecond
	fr, err := p.handle.ReadFrame(ctx, at)
	if err != nil {
		p.log.Warn("frame: decode failed", zap.String("timecode", tc), zap.Error(err))
		return types.Frame{}, false
	}
	p.cache.Put(key, fr)
	return fr, true
}
