package core

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

var (
	ledgerAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	registryAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	escrowAddr   = common.HexToAddress("0xe5c0000000000000000000000000000000000001")
	operatorAddr = common.HexToAddress("0x0be7000000000000000000000000000000000001")
	recipient    = common.HexToAddress("0xfee0000000000000000000000000000000000001")

	seller  = common.HexToAddress("0x5e11e00000000000000000000000000000000001")
	bidderA = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	bidderB = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
	bidderC = common.HexToAddress("0xcccc000000000000000000000000000000000001")
)

var errInjected = errors.New("injected failure")

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeLedger is a minimal token ledger with failure injection.
type fakeLedger struct {
	address    Address
	balances   map[Address]decimal.Decimal
	allowances map[Address]map[Address]decimal.Decimal

	// failTransfer, when set, is consulted before every movement of funds.
	failTransfer func(from, to Address, amount decimal.Decimal) error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		address:    ledgerAddr,
		balances:   make(map[Address]decimal.Decimal),
		allowances: make(map[Address]map[Address]decimal.Decimal),
	}
}

func (l *fakeLedger) Address() Address { return l.address }

func (l *fakeLedger) BalanceOf(account Address) decimal.Decimal {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return decimal.Zero
}

func (l *fakeLedger) Allowance(owner, spender Address) decimal.Decimal {
	if a, ok := l.allowances[owner][spender]; ok {
		return a
	}
	return decimal.Zero
}

func (l *fakeLedger) fund(account Address, amount int64) {
	l.balances[account] = l.BalanceOf(account).Add(amt(amount))
	if l.allowances[account] == nil {
		l.allowances[account] = make(map[Address]decimal.Decimal)
	}
	l.allowances[account][escrowAddr] = l.Allowance(account, escrowAddr).Add(amt(amount))
}

func (l *fakeLedger) Transfer(from, to Address, amount decimal.Decimal) error {
	if l.failTransfer != nil {
		if err := l.failTransfer(from, to, amount); err != nil {
			return err
		}
	}
	if l.BalanceOf(from).LessThan(amount) {
		return fmt.Errorf("insufficient balance: %s < %s", l.BalanceOf(from), amount)
	}
	l.balances[from] = l.BalanceOf(from).Sub(amount)
	l.balances[to] = l.BalanceOf(to).Add(amount)
	return nil
}

func (l *fakeLedger) TransferFrom(spender, from, to Address, amount decimal.Decimal) error {
	allowed := l.Allowance(from, spender)
	if allowed.LessThan(amount) {
		return fmt.Errorf("insufficient allowance: %s < %s", allowed, amount)
	}
	if err := l.Transfer(from, to, amount); err != nil {
		return err
	}
	l.allowances[from][spender] = allowed.Sub(amount)
	return nil
}

// fakeRegistry is a minimal asset registry with failure injection.
type fakeRegistry struct {
	address    Address
	owners     map[AssetID]Address
	authorized map[AssetID]bool

	failCustody func(from, to Address, assetID AssetID) error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		address:    registryAddr,
		owners:     make(map[AssetID]Address),
		authorized: make(map[AssetID]bool),
	}
}

func (r *fakeRegistry) Address() Address { return r.address }

// mint gives assetID to owner and authorizes the escrow for it.
func (r *fakeRegistry) mint(owner Address, assetID AssetID) {
	r.owners[assetID] = owner
	r.authorized[assetID] = true
}

func (r *fakeRegistry) OwnerOf(assetID AssetID) (Address, error) {
	owner, ok := r.owners[assetID]
	if !ok {
		return Address{}, fmt.Errorf("asset %d does not exist", assetID)
	}
	return owner, nil
}

func (r *fakeRegistry) IsAuthorizedCustodian(custodian Address, assetID AssetID) bool {
	return custodian == escrowAddr && r.authorized[assetID]
}

func (r *fakeRegistry) TransferCustody(operator, from, to Address, assetID AssetID) error {
	if r.failCustody != nil {
		if err := r.failCustody(from, to, assetID); err != nil {
			return err
		}
	}
	if r.owners[assetID] != from {
		return fmt.Errorf("asset %d not owned by %s", assetID, from.Hex())
	}
	if operator != from && !r.authorized[assetID] {
		return fmt.Errorf("operator %s not approved", operator.Hex())
	}
	r.owners[assetID] = to
	return nil
}

type fixture struct {
	engine   *Engine
	ledger   *fakeLedger
	registry *fakeRegistry
	clock    *fakeClock
}

func testConfig(policy PolicyKind) Config {
	cfg := DefaultConfig()
	cfg.Policy = policy
	cfg.FeeRecipient = recipient
	cfg.Escrow = escrowAddr
	cfg.Operator = operatorAddr
	cfg.StrictInvariants = true
	return cfg
}

func newFixture(t *testing.T, policy PolicyKind) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, testConfig(policy))
}

func newFixtureWithConfig(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	f, err := buildFixture(cfg, opts...)
	assert.NoError(t, err)
	return f
}

func buildFixture(cfg Config, opts ...Option) (*fixture, error) {
	f := &fixture{
		ledger:   newFakeLedger(),
		registry: newFakeRegistry(),
		clock:    newFakeClock(),
	}
	opts = append([]Option{
		WithClock(f.clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	engine, err := NewEngine(cfg, f.ledger, f.registry, opts...)
	if err != nil {
		return nil, err
	}
	f.engine = engine

	f.registry.mint(seller, 7)
	f.ledger.fund(seller, 10000)
	for _, b := range []Address{bidderA, bidderB, bidderC} {
		f.ledger.fund(b, 20000)
	}
	return f, nil
}

// create opens an auction on asset 7 with a 20 second window.
func (f *fixture) create(t *testing.T, startPrice int64) AuctionID {
	t.Helper()
	id, err := f.engine.Create(seller, 7, amt(startPrice), 20*time.Second)
	assert.NoError(t, err)
	return id
}

func (f *fixture) bid(t *testing.T, id AuctionID, bidder Address, amount int64) *BidResult {
	t.Helper()
	res, err := f.engine.Bid(id, bidder, amt(amount))
	assert.NoError(t, err)
	return res
}

// recordingObserver captures engine notifications.
type recordingObserver struct {
	ops    []Operation
	errs   []error
	pool   decimal.Decimal
	active int
}

func (o *recordingObserver) ObserveOperation(op Operation, err error) {
	o.ops = append(o.ops, op)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObserveState(pool decimal.Decimal, active int) {
	o.pool = pool
	o.active = active
}
