//go:build integration

package mentorship

import (
	"testing"

	"github.com/cody-community/cody-backend/internal/repo/repotest"
)

// These runs use a multi-connection pool, so the mentor row lock is the only
// thing serializing the capacity check.

func TestPostgresConcurrentDecisionsNeverExceedCapacity(t *testing.T) {
	assertCapacityHoldsUnderConcurrency(t, repotest.NewPostgres(t))
}

func TestPostgresConcurrentDecisionsForSameMenteeKeepOneRow(t *testing.T) {
	assertOneDecisionPerMentee(t, repotest.NewPostgres(t))
}
