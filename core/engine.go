package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine is an escrow-based ascending auction engine. It owns one AuctionStore and one
// BidLedger; every call is serialized by a single per-instance lock because the pool is
// shared by all auctions.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	policy   BidPolicy
	ledger   Ledger
	registry Registry

	store   *AuctionStore
	bids    *BidLedger
	journal journal

	clock    Clock
	log      *slog.Logger
	observer Observer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for expiry checks.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver registers an observer notified after every mutating call.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine validates cfg and wires the engine to its collaborators.
func NewEngine(cfg Config, ledger Ledger, registry Registry, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if err := checkCollaborator(ledger); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if err := checkCollaborator(registry); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	policy, err := NewBidPolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		policy:   policy,
		ledger:   ledger,
		registry: registry,
		store:    NewAuctionStore(),
		bids:     NewBidLedger(),
		clock:    systemClock{},
		log:      slog.Default().With("pkg", "escrow"),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// committedError marks a failure that happened after an external interaction succeeded;
// the internal state is kept because it already matches what was moved outside.
type committedError struct{ err error }

func (c *committedError) Error() string { return c.err.Error() }
func (c *committedError) Unwrap() error { return c.err }

func committed(err error) error {
	return &committedError{err: err}
}

// run executes fn under the engine lock. Any error rolls back the journal unless it is
// a committedError.
func (e *Engine) run(op Operation, fn func(now time.Time) error) error {
	e.mu.Lock()
	rev := e.journal.NewCheckpoint()
	err := fn(e.clock.Now())

	var ce *committedError
	if err != nil && !errors.As(err, &ce) {
		e.journal.RevertTo(rev)
	}
	if ce != nil {
		err = ce.err
	}
	e.journal.reset()
	pool, active := e.bids.Pool(), e.store.ActiveCount()
	e.mu.Unlock()

	switch {
	case err == nil:
	case KindOf(err) == KindIntegrity:
		e.log.Error("escrow integrity failure", "op", op, "err", err)
	default:
		e.log.Debug("call rejected", "op", op, "kind", KindOf(err), "err", err)
	}
	e.observer.ObserveOperation(op, err)
	e.observer.ObserveState(pool, active)
	return err
}

// verify re-checks the accounting invariants before any external interaction when
// strict mode is on; a violation rolls the call back.
func (e *Engine) verify() error {
	if !e.cfg.StrictInvariants {
		return nil
	}
	return e.checkInvariantsLocked()
}

// Create locks assetID into engine custody and opens an auction for it.
func (e *Engine) Create(seller Address, assetID AssetID, startPrice decimal.Decimal, duration time.Duration) (AuctionID, error) {
	var id AuctionID
	err := e.run(OpCreate, func(now time.Time) error {
		if assetID == 0 {
			return ErrInvalidAsset
		}
		if seller == (Address{}) {
			return fmt.Errorf("seller: %w", ErrZeroAddress)
		}
		owner, err := e.registry.OwnerOf(assetID)
		if err != nil {
			return wrapf(ErrInvalidAsset, "asset %d: %v", assetID, err)
		}
		if owner != seller {
			return wrapf(ErrNotOwner, "asset %d is owned by %s", assetID, owner.Hex())
		}
		if !e.registry.IsAuthorizedCustodian(e.cfg.Escrow, assetID) {
			return wrapf(ErrNotAuthorizedCustodian, "asset %d", assetID)
		}
		if startPrice.LessThan(e.cfg.MinStartPrice) {
			return wrapf(ErrPriceTooLow, "start price %s, minimum %s", startPrice, e.cfg.MinStartPrice)
		}
		if !validAmount(startPrice, e.cfg.AmountPrecision) {
			return wrapf(ErrInvalidAmount, "start price %s", startPrice)
		}
		if duration <= 0 {
			return ErrZeroDuration
		}
		if live, ok := e.store.Live(assetID); ok {
			return wrapf(ErrAlreadyActive, "asset %d is in auction %s", assetID, live.ID)
		}

		a := &Auction{
			ID:          uuid.New(),
			Seller:      seller,
			AssetID:     assetID,
			StartPrice:  startPrice,
			StartTime:   now,
			Duration:    duration,
			EndTime:     now.Add(duration),
			LeaderStake: decimal.Zero,
			Status:      StatusActive,
		}
		e.store.insert(a, &e.journal)
		if err := e.verify(); err != nil {
			return err
		}

		if err := e.registry.TransferCustody(e.cfg.Escrow, seller, e.cfg.Escrow, assetID); err != nil {
			return wrapf(ErrNotAuthorizedCustodian, "custody transfer of asset %d: %v", assetID, err)
		}
		id = a.ID
		e.log.Info("auction created", "auction", a.ID, "asset", assetID, "seller", seller.Hex(),
			"startPrice", startPrice, "endTime", a.EndTime)
		return nil
	})
	return id, err
}

// Bid escrows amount from bidder into auction id according to the engine's bid policy.
func (e *Engine) Bid(id AuctionID, bidder Address, amount decimal.Decimal) (*BidResult, error) {
	var result *BidResult
	err := e.run(OpBid, func(now time.Time) error {
		a, ok := e.store.Get(id)
		if !ok {
			return wrapf(ErrInvalidAuction, "auction %s", id)
		}
		if a.Status.Terminal() {
			return wrapf(ErrAuctionNotActive, "auction %s is %s", id, a.Status)
		}
		if a.Ended(now) {
			return wrapf(ErrAuctionEnded, "auction %s ended at %s", id, a.EndTime)
		}
		if bidder == a.Seller {
			return ErrSelfBid
		}
		if bidder == (Address{}) {
			return fmt.Errorf("bidder: %w", ErrZeroAddress)
		}
		if !validAmount(amount, e.cfg.AmountPrecision) {
			return wrapf(ErrInvalidAmount, "bid %s", amount)
		}

		prior := e.bids.StakeOf(id, bidder)
		total, err := e.policy.Evaluate(a, prior, amount)
		if err != nil {
			return err
		}
		if balance := e.ledger.BalanceOf(bidder); balance.LessThan(amount) {
			return wrapf(ErrInsufficientFunds, "balance %s, bid %s", balance, amount)
		}
		if allowance := e.ledger.Allowance(bidder, e.cfg.Escrow); allowance.LessThan(amount) {
			return wrapf(ErrInsufficientAllowance, "allowance %s, bid %s", allowance, amount)
		}

		stake := e.bids.deposit(id, bidder, amount, &e.journal)
		e.store.setLeader(a, bidder, stake, &e.journal)
		e.store.appendBid(a, BidEntry{Bidder: bidder, Amount: amount, Total: total, Time: now}, &e.journal)
		if err := e.verify(); err != nil {
			return err
		}

		if err := e.ledger.TransferFrom(e.cfg.Escrow, bidder, e.cfg.Escrow, amount); err != nil {
			return wrapf(ErrInsufficientFunds, "pulling bid: %v", err)
		}

		result = &BidResult{
			AuctionID:   id,
			Bidder:      bidder,
			Amount:      amount,
			Stake:       stake,
			Leader:      bidder,
			LeaderStake: stake,
			Pool:        e.bids.Pool(),
		}
		e.log.Info("bid accepted", "auction", id, "bidder", bidder.Hex(), "amount", amount,
			"stake", stake, "pool", result.Pool)
		return nil
	})
	return result, err
}

// Withdraw refunds caller's whole stake on auction id. The current leader of an active
// auction can not withdraw; a stake left on an ended auction always can.
func (e *Engine) Withdraw(id AuctionID, caller Address) (decimal.Decimal, error) {
	refunded := decimal.Zero
	err := e.run(OpWithdraw, func(time.Time) error {
		a, ok := e.store.Get(id)
		if !ok {
			return wrapf(ErrInvalidAuction, "auction %s", id)
		}
		stake := e.bids.StakeOf(id, caller)
		if !stake.IsPositive() {
			return ErrNoStake
		}
		if (a.Status == StatusActive && a.IsLeader(caller)) || (a.Status == StatusClosed && a.IsWinner(caller)) {
			return ErrIsLeader
		}
		if held := e.ledger.BalanceOf(e.cfg.Escrow); held.LessThan(stake) {
			return wrapf(ErrPoolInsolvent, "escrow holds %s, stake %s", held, stake)
		}

		amount, err := e.bids.release(id, caller, &e.journal)
		if err != nil {
			return err
		}
		if err := e.verify(); err != nil {
			return err
		}

		if err := e.ledger.Transfer(e.cfg.Escrow, caller, amount); err != nil {
			return wrapf(ErrPayoutFailed, "refund transfer: %v", err)
		}
		refunded = amount
		e.log.Info("stake withdrawn", "auction", id, "bidder", caller.Hex(), "amount", amount,
			"pool", e.bids.Pool())
		return nil
	})
	return refunded, err
}

// Cancel ends auction id before expiry on the seller's request. The seller forfeits the
// start price to the fee recipient and gets the asset back; bidders keep their stakes,
// withdrawable at any time.
//
// The penalty is pulled into escrow before the asset is returned. If the return fails the
// auction stays active and the penalty is booked as a credit the seller can claim. If
// forwarding the penalty fails it is booked as a credit for the fee recipient.
func (e *Engine) Cancel(id AuctionID, caller Address) (*Settlement, error) {
	var settlement *Settlement
	err := e.run(OpCancel, func(now time.Time) error {
		a, ok := e.store.Get(id)
		if !ok {
			return wrapf(ErrInvalidAuction, "auction %s", id)
		}
		if a.Status.Terminal() {
			return wrapf(ErrAuctionNotActive, "auction %s is %s", id, a.Status)
		}
		if a.Ended(now) {
			return wrapf(ErrAuctionEnded, "auction %s ended at %s", id, a.EndTime)
		}
		if caller != a.Seller {
			return ErrNotSeller
		}
		penalty := CancellationPenalty(a)
		if balance := e.ledger.BalanceOf(a.Seller); balance.LessThan(penalty) {
			return wrapf(ErrPenaltyPaymentFailed, "balance %s, penalty %s", balance, penalty)
		}
		if allowance := e.ledger.Allowance(a.Seller, e.cfg.Escrow); allowance.LessThan(penalty) {
			return wrapf(ErrPenaltyPaymentFailed, "allowance %s, penalty %s", allowance, penalty)
		}
		if err := e.checkCustody(a); err != nil {
			return err
		}

		bids := append([]BidEntry(nil), a.Bids...)
		rev := e.journal.NewCheckpoint()
		e.store.finish(a, StatusCancelled, &e.journal)
		e.store.settle(a, nil, decimal.Zero, decimal.Zero, penalty, &e.journal)
		if err := e.verify(); err != nil {
			return err
		}

		if err := e.ledger.TransferFrom(e.cfg.Escrow, a.Seller, e.cfg.Escrow, penalty); err != nil {
			return wrapf(ErrPenaltyPaymentFailed, "penalty transfer: %v", err)
		}
		if err := e.registry.TransferCustody(e.cfg.Escrow, e.cfg.Escrow, a.Seller, a.AssetID); err != nil {
			// the penalty is already in escrow; keep the auction open and owe it back
			e.journal.RevertTo(rev)
			e.bids.credit(a.Seller, penalty, &e.journal)
			e.log.Warn("asset return failed, penalty credited to seller", "auction", id,
				"asset", a.AssetID, "penalty", penalty, "err", err)
			return committed(wrapf(ErrInvariantViolated, "returning asset %d: %v", a.AssetID, err))
		}
		e.payOrCredit(id, e.cfg.FeeRecipient, penalty, "penalty")

		settlement = &Settlement{
			AuctionID:    id,
			AssetID:      a.AssetID,
			Outcome:      OutcomeCancelled,
			Seller:       a.Seller,
			Price:        decimal.Zero,
			Fee:          decimal.Zero,
			Payout:       decimal.Zero,
			Penalty:      penalty,
			FeeRecipient: e.cfg.FeeRecipient,
			Bids:         bids,
			SettledAt:    now,
		}
		e.log.Info("auction cancelled", "auction", id, "asset", a.AssetID, "penalty", penalty)
		return nil
	})
	return settlement, err
}

// Close settles auction id after expiry. With a leader, the leading stake is split into
// fee and payout and the asset goes to the leader; without one, the asset returns to the seller.
func (e *Engine) Close(id AuctionID, caller Address) (*Settlement, error) {
	var settlement *Settlement
	err := e.run(OpClose, func(now time.Time) error {
		a, ok := e.store.Get(id)
		if !ok {
			return wrapf(ErrInvalidAuction, "auction %s", id)
		}
		if a.Status.Terminal() {
			return wrapf(ErrAuctionNotActive, "auction %s is %s", id, a.Status)
		}
		if !a.Ended(now) {
			return wrapf(ErrAuctionNotEnded, "auction %s ends at %s", id, a.EndTime)
		}
		if caller != a.Seller {
			return ErrNotSeller
		}
		if err := e.checkCustody(a); err != nil {
			return err
		}

		settlement = &Settlement{
			AuctionID:    id,
			AssetID:      a.AssetID,
			Outcome:      OutcomeClosed,
			Seller:       a.Seller,
			Price:        decimal.Zero,
			Fee:          decimal.Zero,
			Payout:       decimal.Zero,
			Penalty:      decimal.Zero,
			FeeRecipient: e.cfg.FeeRecipient,
			Bids:         append([]BidEntry(nil), a.Bids...),
			SettledAt:    now,
		}

		if a.Leader == nil {
			e.store.finish(a, StatusClosed, &e.journal)
			if err := e.verify(); err != nil {
				return err
			}
			if err := e.registry.TransferCustody(e.cfg.Escrow, e.cfg.Escrow, a.Seller, a.AssetID); err != nil {
				return wrapf(ErrInvariantViolated, "returning asset %d: %v", a.AssetID, err)
			}
			e.log.Info("auction closed without bids", "auction", id, "asset", a.AssetID)
			return nil
		}

		leader, stake := *a.Leader, a.LeaderStake
		if held := e.ledger.BalanceOf(e.cfg.Escrow); held.LessThan(stake) {
			return wrapf(ErrPoolInsolvent, "escrow holds %s, winning stake %s", held, stake)
		}
		fee, payout := SplitFee(stake, e.cfg.FeeRate, e.cfg.AmountPrecision)

		consumed, err := e.bids.release(id, leader, &e.journal)
		if err != nil {
			return err
		}
		if !consumed.Equal(stake) {
			return wrapf(ErrInvariantViolated, "leader stake %s, recorded %s", consumed, stake)
		}
		e.store.finish(a, StatusClosed, &e.journal)
		e.store.settle(a, &leader, stake, fee, decimal.Zero, &e.journal)
		if err := e.verify(); err != nil {
			return err
		}

		// the asset moves first so a refusal leaves nothing to undo outside
		if err := e.registry.TransferCustody(e.cfg.Escrow, e.cfg.Escrow, leader, a.AssetID); err != nil {
			return wrapf(ErrInvariantViolated, "delivering asset %d: %v", a.AssetID, err)
		}
		e.payOrCredit(id, e.cfg.FeeRecipient, fee, "fee")
		e.payOrCredit(id, a.Seller, payout, "payout")

		settlement.Winner = &leader
		settlement.Price = stake
		settlement.Fee = fee
		settlement.Payout = payout
		e.log.Info("auction closed", "auction", id, "asset", a.AssetID, "winner", leader.Hex(),
			"price", stake, "fee", fee, "payout", payout, "pool", e.bids.Pool())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Claim pays out the settlement credit booked for caller after a failed transfer.
func (e *Engine) Claim(caller Address) (decimal.Decimal, error) {
	claimed := decimal.Zero
	err := e.run(OpClaim, func(time.Time) error {
		credit := e.bids.CreditOf(caller)
		if !credit.IsPositive() {
			return ErrNoCredit
		}
		if held := e.ledger.BalanceOf(e.cfg.Escrow); held.LessThan(credit) {
			return wrapf(ErrPoolInsolvent, "escrow holds %s, credit %s", held, credit)
		}
		amount, err := e.bids.claim(caller, &e.journal)
		if err != nil {
			return err
		}
		if err := e.verify(); err != nil {
			return err
		}

		if err := e.ledger.Transfer(e.cfg.Escrow, caller, amount); err != nil {
			return wrapf(ErrPayoutFailed, "claim transfer: %v", err)
		}
		claimed = amount
		e.log.Info("credit claimed", "account", caller.Hex(), "amount", amount, "pool", e.bids.Pool())
		return nil
	})
	return claimed, err
}

// payOrCredit sends amount from escrow to account. A refused transfer is booked as a
// credit for account so the funds stay accounted for in the pool.
func (e *Engine) payOrCredit(id AuctionID, account Address, amount decimal.Decimal, leg string) {
	if !amount.IsPositive() {
		return
	}
	if err := e.ledger.Transfer(e.cfg.Escrow, account, amount); err != nil {
		e.bids.credit(account, amount, &e.journal)
		e.log.Warn("settlement transfer refused, amount credited", "auction", id, "leg", leg,
			"account", account.Hex(), "amount", amount, "err", err)
	}
}

// checkCustody makes sure the engine still holds the asset before settling.
func (e *Engine) checkCustody(a *Auction) error {
	owner, err := e.registry.OwnerOf(a.AssetID)
	if err != nil {
		return wrapf(ErrInvariantViolated, "asset %d: %v", a.AssetID, err)
	}
	if owner != e.cfg.Escrow {
		return wrapf(ErrInvariantViolated, "asset %d is held by %s, not escrow", a.AssetID, owner.Hex())
	}
	return nil
}

// CheckInvariants verifies that the pool equals the sum of all stakes and unclaimed
// credits, and that every
// leader holds the strictly highest stake of its auction.
func (e *Engine) CheckInvariants() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkInvariantsLocked()
}

func (e *Engine) checkInvariantsLocked() error {
	if sum := e.bids.Sum(); !sum.Equal(e.bids.Pool()) {
		return wrapf(ErrInvariantViolated, "pool %s, sum of stakes and credits %s", e.bids.Pool(), sum)
	}

	var violation error
	e.store.All(func(a *Auction) {
		if violation != nil || a.Status.Terminal() || a.Leader == nil {
			return
		}
		leader := *a.Leader
		if stake := e.bids.StakeOf(a.ID, leader); !stake.Equal(a.LeaderStake) {
			violation = wrapf(ErrInvariantViolated, "auction %s: leader stake %s, recorded %s", a.ID, stake, a.LeaderStake)
			return
		}
		e.bids.StakesOf(a.ID, func(bidder Address, stake decimal.Decimal) {
			if violation == nil && bidder != leader && !stake.LessThan(a.LeaderStake) {
				violation = wrapf(ErrInvariantViolated, "auction %s: %s stakes %s against leading %s",
					a.ID, bidder.Hex(), stake, a.LeaderStake)
			}
		})
	})
	return violation
}
