package pgingest

import "context"

// Approver decides what happens when the download target already exists.
//
// Implementations:
//   - PolicyApprover: answers from a fixed overwrite policy
//   - InteractiveApprover: asks on the terminal
type Approver interface {
	// ConfirmOverwrite is called only when path already exists.
	// A decision with Proceed=false aborts the run.
	ConfirmOverwrite(ctx context.Context, path string) (OverwriteDecision, error)
}
