package safety

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wipeguard/wipeguard/internal/audit"
	"github.com/wipeguard/wipeguard/internal/inventory"
	"github.com/wipeguard/wipeguard/pkg/metrics"
)

// Check names, stable identifiers surfaced in rejections and audit entries.
const (
	CheckTargetExists       = "target_exists"
	CheckProtectedResource  = "protected_resource"
	CheckConfirmationPhrase = "confirmation_phrase"
	CheckRateLimit          = "rate_limit"

	OperationCreateJob = "create_job"
)

type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Result aggregates the independent sub-checks; Passed is the AND of all.
type Result struct {
	Passed     bool          `json:"passed"`
	Checks     []Check       `json:"checks"`
	RetryAfter time.Duration `json:"-"`
}

func (r Result) failedChecks() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// Rejection is the ordinary negative outcome of validation. It is never an
// infrastructure fault; those are returned as plain errors.
type Rejection struct {
	Result Result
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("safety validation failed: %s", strings.Join(r.Result.failedChecks(), ", "))
}

// ExpectedPhrase returns the exact confirmation phrase required for a target.
func ExpectedPhrase(target string) string {
	return strings.ToUpper(target) + " YES"
}

// Validator is the single admission gate for destructive operations.
type Validator struct {
	inventory inventory.Inventory
	trail     *audit.Trail
	limiter   *RateLimiter

	deniedTargets     []string
	protectedPrefixes []string
}

func NewValidator(inv inventory.Inventory, trail *audit.Trail, limiter *RateLimiter, deniedTargets, protectedPrefixes []string) *Validator {
	return &Validator{
		inventory:         inv,
		trail:             trail,
		limiter:           limiter,
		deniedTargets:     deniedTargets,
		protectedPrefixes: protectedPrefixes,
	}
}

// Validate runs every check and returns the aggregate result. A non-nil
// error means a check could not be evaluated (collaborator unreachable),
// which is distinct from a safety rejection.
func (v *Validator) Validate(ctx context.Context, target, confirmationPhrase, callerKey string) (Result, error) {
	devices, err := v.inventory.ListTargets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("device inventory unreachable: %w", err)
	}
	device, found := inventory.Find(devices, target)

	result := Result{Passed: true}

	addCheck := func(name string, passed bool, message, action, severity string) {
		result.Checks = append(result.Checks, Check{Name: name, Passed: passed, Message: message})
		if passed {
			return
		}
		result.Passed = false
		metrics.IncreaseSafetyRejectionsTotalMetric(name)
		v.record(ctx, audit.Entry{
			Action:   action,
			Category: audit.CategorySafety,
			Severity: severity,
			Customer: callerKey,
			Target:   target,
			Details:  map[string]any{"check": name, "message": message},
		})
	}

	// 1. target must exist in the inventory
	addCheck(CheckTargetExists, found,
		fmt.Sprintf("target %q is not present in the device inventory", target),
		audit.ActionTargetNotFound, audit.SeverityWarning)

	// 2. protected-resource. The decision is derived here from the denylist
	// and naming patterns; the inventory's advisory flag only ever denies.
	protectedReason := v.protectedReason(target, device, found)
	addCheck(CheckProtectedResource, protectedReason == "",
		protectedReason,
		audit.ActionProtectedResource, audit.SeverityCritical)

	// 3. confirmation phrase, byte-for-byte
	expected := ExpectedPhrase(target)
	addCheck(CheckConfirmationPhrase, confirmationPhrase == expected,
		fmt.Sprintf("confirmation phrase must be exactly %q", expected),
		audit.ActionBadConfirmation, audit.SeverityWarning)

	// 4. rate limit per (caller, operation)
	allowed, retryAfter := v.limiter.Allow(callerKey, OperationCreateJob)
	if !allowed {
		result.RetryAfter = retryAfter
	}
	addCheck(CheckRateLimit, allowed,
		fmt.Sprintf("too many attempts, retry in %s", retryAfter.Round(time.Second)),
		audit.ActionRateLimited, audit.SeverityWarning)

	return result, nil
}

// protectedReason returns a non-empty reason when the target must never be
// erased.
func (v *Validator) protectedReason(target string, device inventory.Device, found bool) string {
	for _, denied := range v.deniedTargets {
		if strings.EqualFold(target, denied) {
			return fmt.Sprintf("target %q is on the protected denylist", target)
		}
	}
	upper := strings.ToUpper(target)
	for _, prefix := range v.protectedPrefixes {
		if prefix != "" && strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return fmt.Sprintf("target %q matches protected prefix %q", target, prefix)
		}
	}
	if found {
		if strings.Contains(strings.ToLower(device.Label), "system") {
			return fmt.Sprintf("target label %q names a system resource", device.Label)
		}
		if device.Protected {
			// advisory flag is a deny hint only, never an allow
			return fmt.Sprintf("target %q is flagged protected by the inventory", target)
		}
	}
	return ""
}

// record writes the rejection to the audit trail. A trail that cannot
// persist does not un-reject the request; the failure is logged and counted.
func (v *Validator) record(ctx context.Context, e audit.Entry) {
	if _, err := v.trail.Append(ctx, e); err != nil {
		zap.S().Named("safety").Errorw("failed to audit safety rejection", "action", e.Action, "error", err)
	}
}
