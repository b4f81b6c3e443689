package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// PolicyApprover implements the Approver interface without asking anyone.
// It answers from a fixed overwrite policy: always replaces the existing
// file, never keeps it. Both proceed with the run.
type PolicyApprover struct {
	policy pgingest.OverwritePolicy
	output io.Writer
}

// NewPolicyApprover creates a PolicyApprover. The ask policy is treated as
// never, which is the safe answer when nobody can be asked.
func NewPolicyApprover(policy pgingest.OverwritePolicy) *PolicyApprover {
	if policy != pgingest.OverwriteAlways {
		policy = pgingest.OverwriteNever
	}
	return &PolicyApprover{policy: policy, output: os.Stderr}
}

// ConfirmOverwrite reports the decision and always proceeds.
func (a *PolicyApprover) ConfirmOverwrite(ctx context.Context, path string) (pgingest.OverwriteDecision, error) {
	if err := ctx.Err(); err != nil {
		return pgingest.OverwriteDecision{}, err
	}

	if a.policy == pgingest.OverwriteAlways {
		fmt.Fprintf(a.output, "A file named %s already exists, downloading it again.\n", path)
		return pgingest.OverwriteDecision{Proceed: true, Overwrite: true}, nil
	}

	fmt.Fprintf(a.output, "A file named %s already exists, using it as is.\n", path)
	return pgingest.OverwriteDecision{Proceed: true, Overwrite: false}, nil
}

// NewApprover picks the approver for policy. The ask policy prompts only when
// interactive is true and falls back to never otherwise.
func NewApprover(policy pgingest.OverwritePolicy, interactive bool) pgingest.Approver {
	if policy == pgingest.OverwriteAsk && interactive {
		return NewInteractiveApprover()
	}
	return NewPolicyApprover(policy)
}

// Verify PolicyApprover implements the Approver interface at compile time
var _ pgingest.Approver = (*PolicyApprover)(nil)
