package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProcedureWriter produces the legal procedure narrative for a law section.
type ProcedureWriter interface {
	Enabled() bool
	Procedure(ctx context.Context, section string) (string, error)
}

// NoProcedure is returned when no provider produced text.
const NoProcedure = "No procedure found."

var ErrDisabled = errors.New("procedure writer disabled")

// Prompt builds the question sent to every provider.
func Prompt(section string) string {
	return fmt.Sprintf("What are the legal procedures for %s under Indian Cyber Law?", strings.TrimSpace(section))
}
