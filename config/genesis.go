package config

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/ledger"
	"github.com/cloudx-io/openescrow/registry"
)

// Genesis seeds the in-memory ledger and registry at startup.
type Genesis struct {
	Ledger   LedgerGenesis   `yaml:"ledger"`
	Registry RegistryGenesis `yaml:"registry"`
	Accounts []AccountGrant  `yaml:"accounts"`
	Assets   []AssetGrant    `yaml:"assets"`
}

type LedgerGenesis struct {
	Address string `yaml:"address"`
	Admin   string `yaml:"admin"`
	Symbol  string `yaml:"symbol"`
	// Cap bounds total supply; empty or zero means uncapped.
	Cap string `yaml:"cap"`
}

type RegistryGenesis struct {
	Address string `yaml:"address"`
	Admin   string `yaml:"admin"`
}

// AccountGrant mints Balance to Account and approves Allowance to the escrow.
type AccountGrant struct {
	Account   string `yaml:"account"`
	Balance   string `yaml:"balance"`
	Allowance string `yaml:"allowance"`
}

// AssetGrant mints asset ID to Owner; Approve lets the escrow take custody of it.
type AssetGrant struct {
	ID      uint64 `yaml:"id"`
	Owner   string `yaml:"owner"`
	Approve bool   `yaml:"approve"`
}

func (g *Genesis) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"ledger.address", g.Ledger.Address},
		{"ledger.admin", g.Ledger.Admin},
		{"registry.address", g.Registry.Address},
		{"registry.admin", g.Registry.Admin},
	} {
		if _, err := parseAddress(f.name, f.value); err != nil {
			return err
		}
	}
	if _, err := parseAmount("ledger.cap", g.Ledger.Cap); err != nil {
		return err
	}
	for i, acc := range g.Accounts {
		if _, err := parseAddress("accounts.account", acc.Account); err != nil {
			return errors.Wrapf(err, "accounts[%d]", i)
		}
		if _, err := parseAmount("accounts.balance", acc.Balance); err != nil {
			return errors.Wrapf(err, "accounts[%d]", i)
		}
		if _, err := parseAmount("accounts.allowance", acc.Allowance); err != nil {
			return errors.Wrapf(err, "accounts[%d]", i)
		}
	}
	for i, asset := range g.Assets {
		if asset.ID == 0 {
			return errors.Errorf("assets[%d]: id must be non-zero", i)
		}
		if _, err := parseAddress("assets.owner", asset.Owner); err != nil {
			return errors.Wrapf(err, "assets[%d]", i)
		}
	}
	return nil
}

// Build creates the ledger and registry, applies every grant and gives escrow the
// custodian role. Validate must have passed.
func (g *Genesis) Build(escrow common.Address) (*ledger.Memory, *registry.Memory, error) {
	supplyCap, _ := parseAmount("ledger.cap", g.Ledger.Cap)
	ledgerAdmin := common.HexToAddress(g.Ledger.Admin)
	tokens := ledger.New(common.HexToAddress(g.Ledger.Address), ledgerAdmin, g.Ledger.Symbol, supplyCap)

	for _, acc := range g.Accounts {
		account := common.HexToAddress(acc.Account)
		balance, _ := parseAmount("balance", acc.Balance)
		allowance, _ := parseAmount("allowance", acc.Allowance)
		if balance.IsPositive() {
			if err := tokens.Mint(ledgerAdmin, account, balance); err != nil {
				return nil, nil, errors.Wrapf(err, "mint to %s", account.Hex())
			}
		}
		if allowance.IsPositive() {
			if err := tokens.Approve(account, escrow, allowance); err != nil {
				return nil, nil, errors.Wrapf(err, "approve for %s", account.Hex())
			}
		}
	}

	registryAdmin := common.HexToAddress(g.Registry.Admin)
	assets := registry.New(common.HexToAddress(g.Registry.Address), registryAdmin)
	if err := assets.AddCustodian(registryAdmin, escrow); err != nil {
		return nil, nil, errors.Wrap(err, "grant escrow custodian role")
	}
	for _, grant := range g.Assets {
		owner := common.HexToAddress(grant.Owner)
		id := core.AssetID(grant.ID)
		if err := assets.Mint(registryAdmin, owner, id); err != nil {
			return nil, nil, errors.Wrapf(err, "mint asset %d", grant.ID)
		}
		if grant.Approve {
			if err := assets.Approve(owner, escrow, id); err != nil {
				return nil, nil, errors.Wrapf(err, "approve asset %d", grant.ID)
			}
		}
	}
	return tokens, assets, nil
}

// parseAmount treats an empty value as zero.
func parseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, field)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.Errorf("%s: must not be negative, got %s", field, d)
	}
	return d, nil
}
