package enums

import "fmt"

// RewardCurrency names the wallet balance a reward entry moves.
type RewardCurrency string

const (
	RewardCurrencyEXP    RewardCurrency = "EXP"
	RewardCurrencyCredit RewardCurrency = "CREDIT"
)

var validRewardCurrencies = []RewardCurrency{
	RewardCurrencyEXP,
	RewardCurrencyCredit,
}

// IsValid reports whether the value matches a known RewardCurrency.
func (c RewardCurrency) IsValid() bool {
	for _, candidate := range validRewardCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// RewardSource identifies what produced a reward entry.
type RewardSource string

const (
	RewardSourceStarterGrant RewardSource = "STARTER_GRANT"
	RewardSourceAdjustment   RewardSource = "ADJUSTMENT"
)

var validRewardSources = []RewardSource{
	RewardSourceStarterGrant,
	RewardSourceAdjustment,
}

// IsValid reports whether the value matches a known RewardSource.
func (s RewardSource) IsValid() bool {
	for _, candidate := range validRewardSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRewardSource converts raw input into a RewardSource.
func ParseRewardSource(value string) (RewardSource, error) {
	for _, candidate := range validRewardSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reward source %q", value)
}
