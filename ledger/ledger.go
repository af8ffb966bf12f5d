// Package ledger is an in-memory fungible token ledger with capped supply, allowances,
// pausing and an address blacklist. It implements core.Ledger.
package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrCapExceeded           = errors.New("not enough token to claim")
	ErrPaused                = errors.New("ledger is paused")
	ErrNotPaused             = errors.New("ledger is not paused")
	ErrBlacklisted           = errors.New("address is blacklisted")
	ErrZeroAddress           = errors.New("zero address")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNotAdmin              = errors.New("caller is not the ledger admin")
)

// Memory is a thread-safe in-memory token ledger.
type Memory struct {
	mu sync.RWMutex

	address common.Address
	admin   common.Address
	symbol  string

	cap    decimal.Decimal // zero means uncapped
	supply decimal.Decimal

	balances   map[common.Address]decimal.Decimal
	allowances map[common.Address]map[common.Address]decimal.Decimal
	blacklist  map[common.Address]bool
	paused     bool
}

// New creates a ledger deployed at address and administered by admin.
func New(address, admin common.Address, symbol string, supplyCap decimal.Decimal) *Memory {
	return &Memory{
		address:    address,
		admin:      admin,
		symbol:     symbol,
		cap:        supplyCap,
		supply:     decimal.Zero,
		balances:   make(map[common.Address]decimal.Decimal),
		allowances: make(map[common.Address]map[common.Address]decimal.Decimal),
		blacklist:  make(map[common.Address]bool),
	}
}

func (m *Memory) Address() common.Address { return m.address }

func (m *Memory) Symbol() string { return m.symbol }

func (m *Memory) TotalSupply() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supply
}

func (m *Memory) BalanceOf(account common.Address) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceOf(account)
}

func (m *Memory) balanceOf(account common.Address) decimal.Decimal {
	if b, ok := m.balances[account]; ok {
		return b
	}
	return decimal.Zero
}

func (m *Memory) Allowance(owner, spender common.Address) decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allowance(owner, spender)
}

func (m *Memory) allowance(owner, spender common.Address) decimal.Decimal {
	if a, ok := m.allowances[owner][spender]; ok {
		return a
	}
	return decimal.Zero
}

// Mint creates amount new tokens for to, bounded by the supply cap.
func (m *Memory) Mint(caller, to common.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if err := m.checkActive(to); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "mint %s", amount)
	}
	if !m.cap.IsZero() && m.supply.Add(amount).GreaterThan(m.cap) {
		return errors.Wrapf(ErrCapExceeded, "supply %s + %s > cap %s", m.supply, amount, m.cap)
	}
	m.supply = m.supply.Add(amount)
	m.balances[to] = m.balanceOf(to).Add(amount)
	return nil
}

// Approve sets the amount spender may move out of owner's balance.
func (m *Memory) Approve(owner, spender common.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner == (common.Address{}) || spender == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsNegative() {
		return errors.Wrapf(ErrInvalidAmount, "approve %s", amount)
	}
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[common.Address]decimal.Decimal)
	}
	m.allowances[owner][spender] = amount
	return nil
}

// Transfer moves amount from -> to.
func (m *Memory) Transfer(from, to common.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, amount)
}

// TransferFrom moves amount from -> to on behalf of spender, consuming allowance.
func (m *Memory) TransferFrom(spender, from, to common.Address, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkActive(spender); err != nil {
		return err
	}
	allowed := m.allowance(from, spender)
	if allowed.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientAllowance, "%s allows %s to spend %s, want %s",
			from.Hex(), spender.Hex(), allowed, amount)
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	m.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

func (m *Memory) move(from, to common.Address, amount decimal.Decimal) error {
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}
	if !amount.IsPositive() {
		return errors.Wrapf(ErrInvalidAmount, "transfer %s", amount)
	}
	if err := m.checkActive(from); err != nil {
		return err
	}
	if err := m.checkActive(to); err != nil {
		return err
	}
	balance := m.balanceOf(from)
	if balance.LessThan(amount) {
		return errors.Wrapf(ErrInsufficientBalance, "%s holds %s, want %s", from.Hex(), balance, amount)
	}
	m.balances[from] = balance.Sub(amount)
	m.balances[to] = m.balanceOf(to).Add(amount)
	return nil
}

func (m *Memory) checkActive(account common.Address) error {
	if m.paused {
		return ErrPaused
	}
	if m.blacklist[account] {
		return errors.Wrapf(ErrBlacklisted, "%s", account.Hex())
	}
	return nil
}

// Pause freezes every mint and transfer.
func (m *Memory) Pause(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if m.paused {
		return ErrPaused
	}
	m.paused = true
	return nil
}

func (m *Memory) Unpause(caller common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if !m.paused {
		return ErrNotPaused
	}
	m.paused = false
	return nil
}

// SetBlacklisted blocks or unblocks an account from sending, receiving and spending.
func (m *Memory) SetBlacklisted(caller, account common.Address, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return ErrNotAdmin
	}
	if blocked {
		m.blacklist[account] = true
	} else {
		delete(m.blacklist, account)
	}
	return nil
}
