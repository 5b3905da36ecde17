package onboarding

import "github.com/cody-community/cody-backend/pkg/db/models"

// Snapshot is the completion verdict for one member at a single point in time.
type Snapshot struct {
	NameOK   bool `json:"name_ok"`
	AgeOK    bool `json:"age_ok"`
	MentorOK bool `json:"mentor_ok"`
	Complete bool `json:"complete"`
}

// Evaluate derives the snapshot from facts read in the same transaction.
// A nil member evaluates to an all-false snapshot; any decision row, assigned
// or skipped, satisfies the mentor gate.
func Evaluate(member *models.Member, decision *models.MentorAssignment) Snapshot {
	var snap Snapshot
	if member != nil {
		snap.NameOK = member.HasDisplayName()
		snap.AgeOK = member.IsAgeVerified()
	}
	snap.MentorOK = decision != nil
	snap.Complete = snap.NameOK && snap.AgeOK && snap.MentorOK
	return snap
}
