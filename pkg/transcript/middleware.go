// Package transcript provides middleware for transcript sinks: redaction, encryption at rest
// and fan-out to several sinks.
package transcript

import (
	"context"
	"errors"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Middleware wraps a TranscriptSink to add behavior.
type Middleware func(ports.TranscriptSink) ports.TranscriptSink

// Chain applies mws so that the first one sees records first.
func Chain(sink ports.TranscriptSink, mws ...Middleware) ports.TranscriptSink {
	for i := len(mws) - 1; i >= 0; i-- {
		sink = mws[i](sink)
	}
	return sink
}

type tee []ports.TranscriptSink

// Tee appends every record to all sinks. Every sink is attempted; errors are joined.
func Tee(sinks ...ports.TranscriptSink) ports.TranscriptSink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return tee(sinks)
}

func (t tee) Append(ctx context.Context, record domain.TranscriptRecord) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
