package secrets

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

const onePasswordBackend = "1Password"

// OnePasswordResolver reads op://vault/item/field references with the op CLI.
// In CI the CLI authenticates through OP_SERVICE_ACCOUNT_TOKEN.
type OnePasswordResolver struct {
	// lookPath and run are swapped out in tests.
	lookPath func(string) (string, error)
	run      func(ctx context.Context, reference string) (stdout, stderr []byte, err error)
}

// Scheme returns "op".
func (r *OnePasswordResolver) Scheme() string {
	return "op"
}

// Resolve fetches the field with `op read`.
func (r *OnePasswordResolver) Resolve(ctx context.Context, reference string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateOpReference(reference); err != nil {
		return "", err
	}

	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("op"); err != nil {
		return "", &BackendError{
			Backend:   onePasswordBackend,
			Reference: reference,
			Reason:    "op CLI not found in PATH",
			Fix:       "Install it in the job with the 1password/install-cli-action step,\nthen set OP_SERVICE_ACCOUNT_TOKEN.",
		}
	}

	run := r.run
	if run == nil {
		run = runOpRead
	}
	stdout, stderr, err := run(ctx, reference)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", parseOpError(stderr, reference)
	}

	value := strings.TrimSpace(string(stdout))
	if value == "" {
		return "", &BackendError{
			Backend:   onePasswordBackend,
			Reference: reference,
			Reason:    "field is empty",
		}
	}
	return value, nil
}

func runOpRead(ctx context.Context, reference string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, "op", "read", "--no-newline", reference)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// validateOpReference requires at least vault, item and field segments.
func validateOpReference(reference string) error {
	parts := strings.Split(strings.TrimPrefix(reference, "op://"), "/")
	if len(parts) < 3 {
		return &InvalidReferenceError{Reference: reference, Reason: "expected op://vault/item/field"}
	}
	for _, p := range parts {
		if p == "" {
			return &InvalidReferenceError{Reference: reference, Reason: "empty path segment"}
		}
	}
	return nil
}

// parseOpError maps op CLI stderr to the package's error types.
func parseOpError(stderr []byte, reference string) error {
	msg := string(stderr)

	switch {
	case strings.Contains(msg, "not currently signed in") || strings.Contains(msg, "not signed in"):
		return &BackendError{
			Backend:   onePasswordBackend,
			Reference: reference,
			Reason:    "not signed in",
			Fix:       "Set OP_SERVICE_ACCOUNT_TOKEN for the step.",
		}
	case strings.Contains(msg, "isn't an item") || strings.Contains(msg, "could not be found"):
		return &NotFoundError{Reference: reference, Backend: onePasswordBackend}
	case strings.Contains(msg, "isn't a vault") || (strings.Contains(msg, "vault") && strings.Contains(msg, "not found")):
		vault := strings.SplitN(strings.TrimPrefix(reference, "op://"), "/", 2)[0]
		return &BackendError{
			Backend:   onePasswordBackend,
			Reference: reference,
			Reason:    "vault not found or not accessible",
			Fix:       "Grant the service account access to vault \"" + vault + "\".",
		}
	}

	reason := strings.TrimSpace(msg)
	if reason == "" {
		reason = "op read failed"
	}
	return &BackendError{Backend: onePasswordBackend, Reference: reference, Reason: reason}
}

func init() {
	Register(&OnePasswordResolver{})
}
