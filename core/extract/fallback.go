package extract

import (
	"context"
	"fmt"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/logger"
	"github.com/kilianp07/crisistriage/core/model"
)

// Fallback tries Primary and, when it fails, answers with Secondary instead.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
	Logger    logger.Logger
}

// NewFallback wraps primary with a secondary extractor used on failure.
func NewFallback(primary, secondary Extractor, log logger.Logger) (*Fallback, error) {
	if primary == nil || secondary == nil || log == nil {
		return nil, fmt.Errorf("extract: nil parameter provided to NewFallback")
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: log}, nil
}

// Extract implements Extractor. A cancelled context is not masked by the
// fallback.
func (f *Fallback) Extract(ctx context.Context, message string, mc MessageContext) (model.ExtractedInformation, error) {
	info, err := f.Primary.Extract(ctx, message, mc)
	if err == nil {
		return info, nil
	}
	if ctx.Err() != nil {
		return model.ExtractedInformation{}, fmt.Errorf("%w: %v", errs.ErrCollaboratorUnavailable, ctx.Err())
	}
	f.Logger.Warnf("extraction failed, using keyword fallback: %v", err)
	extractFallbacks.Inc()
	return f.Secondary.Extract(ctx, message, mc)
}
