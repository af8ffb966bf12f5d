// Package registry is an in-memory non-fungible asset registry. Every asset has exactly one
// owner; custodians holding the custodian role may move an asset once its owner approved them.
// It implements core.Registry.
package registry

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/cloudx-io/openescrow/core"
)

var (
	ErrNonexistentAsset = errors.New("owner query for nonexistent asset")
	ErrAssetExists      = errors.New("asset already minted")
	ErrNotAssetOwner    = errors.New("transfer of asset that is not own")
	ErrNotApproved      = errors.New("caller is not owner nor approved")
	ErrNotCustodian     = errors.New("caller lacks the custodian role")
	ErrNotAdmin         = errors.New("caller is not the registry admin")
	ErrZeroAddress      = errors.New("zero address")
	ErrInvalidAsset     = errors.New("asset id must be non-zero")
)

// Memory is a thread-safe in-memory asset registry.
type Memory struct {
	mu sync.RWMutex

	address common.Address
	admin   common.Address

	owners     map[core.AssetID]common.Address
	approvals  map[core.AssetID]common.Address
	custodians map[common.Address]bool
	holdings   map[common.Address]int
}

// New creates a registry deployed at address and administered by admin.
func New(address, admin common.Address) *Memory {
	return &Memory{
		address:    address,
		admin:      admin,
		owners:     make(map[core.AssetID]common.Address),
		approvals:  make(map[core.AssetID]common.Address),
		custodians: make(map[common.Address]bool),
		holdings:   make(map[common.Address]int),
	}
}

func (m *Memory) Address() common.Address { return m.address }

// Mint registers a new asset owned by to.
func (m *Memory) Mint(caller, to common.Address, assetID core.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if assetID == 0 {
		return ErrInvalidAsset
	}
	if _, ok := m.owners[assetID]; ok {
		return errors.Wrapf(ErrAssetExists, "asset %d", assetID)
	}
	m.owners[assetID] = to
	m.holdings[to]++
	return nil
}

// AddCustodian grants the custodian role.
func (m *Memory) AddCustodian(caller, custodian common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if custodian == (common.Address{}) {
		return ErrZeroAddress
	}
	m.custodians[custodian] = true
	return nil
}

// RemoveCustodian revokes the custodian role.
func (m *Memory) RemoveCustodian(caller, custodian common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	delete(m.custodians, custodian)
	return nil
}

// Approve lets operator move assetID once on the owner's behalf. A zero operator clears it.
func (m *Memory) Approve(owner, operator common.Address, assetID core.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.owners[assetID]
	if !ok {
		return errors.Wrapf(ErrNonexistentAsset, "asset %d", assetID)
	}
	if current != owner {
		return errors.Wrapf(ErrNotAssetOwner, "asset %d", assetID)
	}
	if operator == (common.Address{}) {
		delete(m.approvals, assetID)
		return nil
	}
	m.approvals[assetID] = operator
	return nil
}

// Approved returns the operator approved for assetID, zero if none.
func (m *Memory) Approved(assetID core.AssetID) common.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.approvals[assetID]
}

func (m *Memory) OwnerOf(assetID core.AssetID) (common.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[assetID]
	if !ok {
		return common.Address{}, errors.Wrapf(ErrNonexistentAsset, "asset %d", assetID)
	}
	return owner, nil
}

// BalanceOf returns the number of assets owned by account.
func (m *Memory) BalanceOf(account common.Address) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holdings[account]
}

// IsAuthorizedCustodian reports whether custodian holds the role and is approved for assetID.
func (m *Memory) IsAuthorizedCustodian(custodian common.Address, assetID core.AssetID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.custodians[custodian] {
		return false
	}
	owner, ok := m.owners[assetID]
	if !ok {
		return false
	}
	return owner == custodian || m.approvals[assetID] == custodian
}

// TransferCustody moves assetID from -> to. operator must be the owner, or a custodian
// approved for the asset. Any approval is cleared by the move.
func (m *Memory) TransferCustody(operator, from, to common.Address, assetID core.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[assetID]
	if !ok {
		return errors.Wrapf(ErrNonexistentAsset, "asset %d", assetID)
	}
	if owner != from {
		return errors.Wrapf(ErrNotAssetOwner, "asset %d is owned by %s", assetID, owner.Hex())
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if operator != owner {
		if !m.custodians[operator] {
			return errors.Wrapf(ErrNotCustodian, "%s", operator.Hex())
		}
		if m.approvals[assetID] != operator {
			return errors.Wrapf(ErrNotApproved, "asset %d", assetID)
		}
	}
	delete(m.approvals, assetID)
	m.owners[assetID] = to
	m.holdings[from]--
	m.holdings[to]++
	return nil
}
