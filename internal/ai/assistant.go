// Package ai holds the prompts sent to the language model and the contract of
// the gateway that delivers them.
package ai

import "context"

// Gateway asks the language model a question backed by a context block.
// Failures are returned as user-visible warning text instead of errors, so
// callers can always hand the answer straight to the user.
type Gateway interface {
	Ask(ctx context.Context, message, contextBlock string) string
}
