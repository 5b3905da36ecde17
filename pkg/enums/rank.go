package enums

import (
	"fmt"
	"strings"
)

// Rank is a step on the community rank ladder.
type Rank string

const (
	RankNone    Rank = "NONE"
	RankStarter Rank = "STARTER"
	RankMember  Rank = "MEMBER"
	RankCrew    Rank = "CREW"
	RankCore    Rank = "CORE"
)

// Ranks lists the ladder in ascending order.
var Ranks = []Rank{
	RankNone,
	RankStarter,
	RankMember,
	RankCrew,
	RankCore,
}

// String implements fmt.Stringer.
func (r Rank) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Rank.
func (r Rank) IsValid() bool {
	return r.Ordinal() >= 0
}

// Ordinal returns the ladder position, or -1 for unknown values.
func (r Rank) Ordinal() int {
	for i, candidate := range Ranks {
		if candidate == r {
			return i
		}
	}
	return -1
}

// AtLeast reports whether r sits at or above min on the ladder.
func (r Rank) AtLeast(min Rank) bool {
	if !r.IsValid() || !min.IsValid() {
		return false
	}
	return r.Ordinal() >= min.Ordinal()
}

// Above reports whether r sits strictly above other on the ladder.
func (r Rank) Above(other Rank) bool {
	if !r.IsValid() || !other.IsValid() {
		return false
	}
	return r.Ordinal() > other.Ordinal()
}

// ParseRank converts raw input into a Rank. Matching is case-insensitive.
func ParseRank(value string) (Rank, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range Ranks {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rank %q", value)
}
