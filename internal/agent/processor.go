package agent

import (
	"context"
)

// Processor turns a prompt into a completion.
// This interface is implemented by the application client.
type Processor interface {
	// Complete sends prompt to the application. Failures are *CallError.
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// Ensure AppClient implements Processor.
var _ Processor = (*AppClient)(nil)
