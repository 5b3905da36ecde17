package rankroles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/cody-community/cody-backend/pkg/enums"
	pkgerrors "github.com/cody-community/cody-backend/pkg/errors"
	"github.com/cody-community/cody-backend/pkg/logger"
	"github.com/cody-community/cody-backend/pkg/metrics"
)

// RoleClient is the membership collaborator that owns a member's role set.
// Each call may fail independently.
type RoleClient interface {
	HasRole(ctx context.Context, memberID, roleID string) (bool, error)
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRole(ctx context.Context, memberID, roleID string) error
}

// RoleLister is implemented by clients that can return the member's whole
// role set in one call. The reconciler then checks held roles locally.
type RoleLister interface {
	MemberRoles(ctx context.Context, memberID string) ([]string, error)
}

// Reconciler converges a member's rank roles onto a single target.
type Reconciler interface {
	Reconcile(ctx context.Context, memberID string, target enums.Rank) (*Result, error)
}

// Op names a role mutation.
type Op string

const (
	OpCheck  Op = "check"
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

const (
	resultOK      = "ok"
	resultNoop    = "noop"
	resultPartial = "partial"
	resultBusy    = "busy"
	resultSkipped = "skipped"
)

// Failure describes one role call that did not succeed.
type Failure struct {
	RoleID string `json:"role_id"`
	Op     Op     `json:"op"`
	Error  string `json:"error"`
}

// Result summarizes a reconciliation pass.
type Result struct {
	MemberID     string     `json:"member_id"`
	Target       enums.Rank `json:"target"`
	TargetRoleID string     `json:"target_role_id,omitempty"`
	Removed      []string   `json:"removed"`
	Added        []string   `json:"added"`
	Failures     []Failure  `json:"failures,omitempty"`
	// Skipped is set when neither the target rank nor NONE has a configured role.
	Skipped bool `json:"skipped"`
}

// Converged reports whether the pass finished with no failed calls.
func (r *Result) Converged() bool {
	return r != nil && len(r.Failures) == 0
}

// Changed reports whether any role was added or removed.
func (r *Result) Changed() bool {
	return r != nil && (len(r.Removed) > 0 || len(r.Added) > 0)
}

type reconciler struct {
	client  RoleClient
	mapping map[enums.Rank]string
	locker  Locker
	logg    *logger.Logger
	metrics *metrics.OnboardingMetrics
}

// Option configures optional reconciler behavior.
type Option func(*reconciler)

// WithLocker serializes reconciliation runs per member.
func WithLocker(locker Locker) Option {
	return func(r *reconciler) { r.locker = locker }
}

// WithLogger attaches a logger for lock and partial-failure warnings.
func WithLogger(logg *logger.Logger) Option {
	return func(r *reconciler) { r.logg = logg }
}

// WithMetrics records pass outcomes.
func WithMetrics(m *metrics.OnboardingMetrics) Option {
	return func(r *reconciler) { r.metrics = m }
}

// NewReconciler builds a reconciler over the configured rank → role mapping.
// Blank role ids are dropped; a rank without a role falls back to the NONE role.
func NewReconciler(client RoleClient, mapping map[enums.Rank]string, opts ...Option) (Reconciler, error) {
	if client == nil {
		return nil, fmt.Errorf("role client required")
	}
	clean := make(map[enums.Rank]string, len(mapping))
	for rank, roleID := range mapping {
		if !rank.IsValid() {
			return nil, fmt.Errorf("invalid rank %q in role mapping", rank)
		}
		if trimmed := strings.TrimSpace(roleID); trimmed != "" {
			clean[rank] = trimmed
		}
	}
	r := &reconciler{client: client, mapping: clean}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Reconcile removes every held rank role other than the target's, then adds
// the target role when missing. It keeps going after a failed call and
// reports all failures together as ROLE_SYNC_PARTIAL.
func (r *reconciler) Reconcile(ctx context.Context, memberID string, target enums.Rank) (*Result, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveDuration("reconcile_roles", time.Since(start)) }()

	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid rank %q", target))
	}

	result := &Result{MemberID: memberID, Target: target, Removed: []string{}, Added: []string{}}
	targetRole := r.roleFor(target)
	if targetRole == "" {
		result.Skipped = true
		r.metrics.ObserveRoleSync(resultSkipped)
		return result, nil
	}
	result.TargetRoleID = targetRole

	if r.locker != nil {
		lease, acquired, err := r.locker.Acquire(ctx, memberID)
		switch {
		case err != nil:
			// reconciliation converges without the lock; run unserialized.
			r.warn(ctx, memberID, "rank role lock unavailable", err)
		case !acquired:
			r.metrics.ObserveRoleSync(resultBusy)
			return nil, pkgerrors.New(pkgerrors.CodeRoleSyncBusy, "rank role sync already running for member")
		default:
			defer func() {
				if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
					r.warn(ctx, memberID, "release rank role lock", err)
				}
			}()
		}
	}

	var errs error
	fail := func(roleID string, op Op, err error) {
		result.Failures = append(result.Failures, Failure{RoleID: roleID, Op: op, Error: err.Error()})
		errs = multierr.Append(errs, fmt.Errorf("%s role %s: %w", op, roleID, err))
	}

	hasRole := r.roleChecker(ctx, memberID)
	for _, roleID := range r.staleRoles(targetRole) {
		held, err := hasRole(roleID)
		if err != nil {
			fail(roleID, OpCheck, err)
			continue
		}
		if !held {
			continue
		}
		if err := r.client.RemoveRole(ctx, memberID, roleID); err != nil {
			fail(roleID, OpRemove, err)
			continue
		}
		result.Removed = append(result.Removed, roleID)
	}

	held, err := hasRole(targetRole)
	switch {
	case err != nil:
		fail(targetRole, OpCheck, err)
	case !held:
		if err := r.client.AddRole(ctx, memberID, targetRole); err != nil {
			fail(targetRole, OpAdd, err)
		} else {
			result.Added = append(result.Added, targetRole)
		}
	}

	if errs != nil {
		r.metrics.ObserveRoleSync(resultPartial)
		r.warn(ctx, memberID, "rank roles partially synchronized", errs)
		return result, pkgerrors.Wrap(pkgerrors.CodeRoleSyncPartial, errs, "rank roles partially synchronized").
			WithDetails(result)
	}
	if result.Changed() {
		r.metrics.ObserveRoleSync(resultOK)
	} else {
		r.metrics.ObserveRoleSync(resultNoop)
	}
	return result, nil
}

// roleChecker snapshots the member's roles once when the client can list them.
// If the listing fails each role is checked on its own.
func (r *reconciler) roleChecker(ctx context.Context, memberID string) func(roleID string) (bool, error) {
	perRole := func(roleID string) (bool, error) {
		return r.client.HasRole(ctx, memberID, roleID)
	}
	lister, ok := r.client.(RoleLister)
	if !ok {
		return perRole
	}
	roles, err := lister.MemberRoles(ctx, memberID)
	if err != nil {
		r.warn(ctx, memberID, "list member roles", err)
		return perRole
	}
	held := make(map[string]struct{}, len(roles))
	for _, roleID := range roles {
		held[roleID] = struct{}{}
	}
	return func(roleID string) (bool, error) {
		_, ok := held[roleID]
		return ok, nil
	}
}

func (r *reconciler) roleFor(rank enums.Rank) string {
	if roleID, ok := r.mapping[rank]; ok {
		return roleID
	}
	return r.mapping[enums.RankNone]
}

// staleRoles lists the distinct rank roles that differ from the target, in ladder order.
func (r *reconciler) staleRoles(targetRole string) []string {
	seen := map[string]struct{}{targetRole: {}}
	var out []string
	for _, rank := range enums.Ranks {
		roleID, ok := r.mapping[rank]
		if !ok {
			continue
		}
		if _, dup := seen[roleID]; dup {
			continue
		}
		seen[roleID] = struct{}{}
		out = append(out, roleID)
	}
	return out
}

func (r *reconciler) warn(ctx context.Context, memberID, msg string, err error) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithMemberID(ctx, memberID)
	ctx = r.logg.WithField(ctx, "error", err.Error())
	r.logg.Warn(ctx, msg)
}
