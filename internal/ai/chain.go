package ai

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

type writerChain struct {
	primary  ProcedureWriter
	fallback ProcedureWriter
}

// WithFallback returns a writer that first tries the primary implementation and
// falls back to the provided writer when the primary is unavailable or returns
// nothing usable.
func WithFallback(primary, fallback ProcedureWriter) ProcedureWriter {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &writerChain{primary: primary, fallback: fallback}
}

func (c *writerChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return true
	}
	return false
}

func (c *writerChain) Procedure(ctx context.Context, section string) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	if c.primary != nil && c.primary.Enabled() {
		text, err := c.primary.Procedure(ctx, section)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err != nil {
			logrus.WithError(err).WithField("section", section).Warn("primary procedure writer failed")
		}
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Procedure(ctx, section)
	}
	return "", ErrDisabled
}

// Static always answers with a fixed text.
type Static string

func (s Static) Enabled() bool { return true }

func (s Static) Procedure(context.Context, string) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return NoProcedure, nil
	}
	return string(s), nil
}
