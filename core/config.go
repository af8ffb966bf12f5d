package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PolicyKind selects the bidding policy of an engine instance.
type PolicyKind string

const (
	PolicyReplace    PolicyKind = "replace"
	PolicyAccumulate PolicyKind = "accumulate"
)

// ParsePolicyKind accepts the policy names case-insensitively.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyReplace:
		return PolicyReplace, nil
	case PolicyAccumulate:
		return PolicyAccumulate, nil
	default:
		return "", fmt.Errorf("unknown bid policy %q (want replace or accumulate)", s)
	}
}

// Config holds the per-instance engine parameters.
type Config struct {
	Policy PolicyKind

	// MinStartPrice is the lowest accepted start price (inclusive).
	MinStartPrice decimal.Decimal

	// FeeRate is the fraction of the winning stake paid to FeeRecipient on close, in (0, 1].
	FeeRate      decimal.Decimal
	FeeRecipient Address

	// Escrow is the engine's own account: it holds the pool on the ledger and custody on the registry.
	Escrow Address

	// Operator may call the administrative setters.
	Operator Address

	// AmountPrecision is the number of fractional digits a token amount may carry.
	AmountPrecision int32

	// StrictInvariants re-verifies pool and leader invariants after every mutating call.
	StrictInvariants bool
}

// DefaultConfig returns the production defaults: accumulate policy,
// minimum start price 1000, fee rate 4%. Addresses must still be filled in.
func DefaultConfig() Config {
	return Config{
		Policy:        PolicyAccumulate,
		MinStartPrice: decimal.NewFromInt(1000),
		FeeRate:       decimal.RequireFromString("0.04"),
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if _, err := ParsePolicyKind(string(c.Policy)); err != nil {
		return err
	}
	if c.MinStartPrice.IsNegative() {
		return fmt.Errorf("min start price must not be negative, got %s", c.MinStartPrice)
	}
	if err := validateFeeRate(c.FeeRate); err != nil {
		return err
	}
	if c.FeeRecipient == (Address{}) {
		return fmt.Errorf("fee recipient: %w", ErrZeroAddress)
	}
	if c.Escrow == (Address{}) {
		return fmt.Errorf("escrow: %w", ErrZeroAddress)
	}
	if c.Operator == (Address{}) {
		return fmt.Errorf("operator: %w", ErrZeroAddress)
	}
	if c.AmountPrecision < 0 {
		return fmt.Errorf("amount precision must not be negative, got %d", c.AmountPrecision)
	}
	return nil
}

func validateFeeRate(rate decimal.Decimal) error {
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return wrapf(ErrInvalidFeeRate, "got %s", rate)
	}
	return nil
}
