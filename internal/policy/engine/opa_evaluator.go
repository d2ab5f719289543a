// Package engine evaluates the device-mismatch policy using OPA Rego. The
// policy decides, per validation, whether a session presented from a device
// other than the one it was bound to is rejected outright or allowed and
// flagged for step-up review.
package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"loandesk/internal/fingerprint"
	sessionservice "loandesk/internal/session/service"
)

const mismatchPolicyPackage = "loandesk.device_mismatch"

// Default Rego policy: strict mode rejects any mismatch, permissive mode lets
// the request through and flags the session. Deployments may override it with
// a custom module, e.g. to reject only on user-agent changes.
const defaultRegoPolicy = `package loandesk.device_mismatch

default reject = false
default flag = false

reject if {
	input.mode == "strict"
}

flag if {
	input.mode == "permissive"
}
`

// OPAEvaluator evaluates the device-mismatch policy with the in-process OPA
// Rego engine. The module is compiled once at construction; evaluation errors
// are returned to the caller, which fails closed.
type OPAEvaluator struct {
	mode     string
	compiler *ast.Compiler
}

// NewOPAEvaluator returns an evaluator for the given mode ("strict" or
// "permissive"). regoModule overrides the default policy when non-empty; it is
// either inline Rego source or a path to a .rego file.
func NewOPAEvaluator(mode, regoModule string) (*OPAEvaluator, error) {
	module, err := resolveModule(regoModule)
	if err != nil {
		return nil, err
	}
	compiler, err := ast.CompileModules(map[string]string{"device_mismatch.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile device-mismatch policy: %w", err)
	}
	return &OPAEvaluator{mode: mode, compiler: compiler}, nil
}

// Decide evaluates the policy for one mismatched validation.
func (e *OPAEvaluator) Decide(ctx context.Context, bound, presented fingerprint.Fingerprint) (sessionservice.MismatchDecision, error) {
	input := map[string]interface{}{
		"mode": e.mode,
		"bound": map[string]interface{}{
			"ip":         bound.IP,
			"user_agent": bound.UserAgent,
		},
		"presented": map[string]interface{}{
			"ip":         presented.IP,
			"user_agent": presented.UserAgent,
		},
		"ip_changed":         bound.IP != presented.IP,
		"user_agent_changed": bound.UserAgent != presented.UserAgent,
	}

	reject, err := e.queryBool(ctx, "reject", input)
	if err != nil {
		return sessionservice.MismatchDecision{}, err
	}
	flag, err := e.queryBool(ctx, "flag", input)
	if err != nil {
		return sessionservice.MismatchDecision{}, err
	}
	return sessionservice.MismatchDecision{Reject: reject, Flag: flag}, nil
}

// HealthCheck verifies the compiled policy evaluates against a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Decide(ctx, fingerprint.Fingerprint{}, fingerprint.Fingerprint{})
	return err
}

func (e *OPAEvaluator) queryBool(ctx context.Context, rule string, input map[string]interface{}) (bool, error) {
	q := rego.New(
		rego.Query(fmt.Sprintf("data.%s.%s", mismatchPolicyPackage, rule)),
		rego.Compiler(e.compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("eval device-mismatch policy %q: %w", rule, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("device-mismatch policy rule %q returned no result", rule)
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("device-mismatch policy rule %q is not boolean", rule)
	}
	return v, nil
}

// resolveModule returns the Rego source to use: the default module, an inline
// override, or the contents of a .rego file the override points at.
func resolveModule(regoModule string) (string, error) {
	regoModule = strings.TrimSpace(regoModule)
	if regoModule == "" {
		return defaultRegoPolicy, nil
	}
	if strings.HasSuffix(regoModule, ".rego") && !strings.Contains(regoModule, "\n") {
		b, err := os.ReadFile(regoModule)
		if err != nil {
			return "", fmt.Errorf("read device-mismatch policy file: %w", err)
		}
		return string(b), nil
	}
	return regoModule, nil
}
