package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// TestEscrowInvariantsHold drives random create/bid/withdraw/cancel/close/claim sequences
// over several concurrently live auctions. After every call it checks that the pool equals
// the sum of every stake and credit ever booked, that the escrow account holds exactly the
// pool, that no token is created or lost, and that a failed call leaves no trace.
func TestEscrowInvariantsHold(t *testing.T) {
	for _, policy := range []PolicyKind{PolicyAccumulate, PolicyReplace} {
		t.Run(string(policy), func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				f, err := buildFixture(testConfig(policy))
				if err != nil {
					rt.Fatalf("fixture: %v", err)
				}
				assets := []AssetID{7, 8, 9}
				for _, assetID := range assets[1:] {
					f.registry.mint(seller, assetID)
				}
				bidders := []Address{bidderA, bidderB, bidderC}
				accounts := append([]Address{seller, recipient, escrowAddr}, bidders...)
				supply := totalHeld(f.ledger, accounts)

				refuseSeller := false
				f.ledger.failTransfer = func(from, to Address, amount decimal.Decimal) error {
					if refuseSeller && to == seller && from == escrowAddr {
						return errInjected
					}
					return nil
				}

				var ever []AuctionID
				live := make(map[AssetID]AuctionID)
				create := func(assetID AssetID) error {
					startPrice := amt(int64(rapid.IntRange(1000, 3000).Draw(rt, "start")))
					duration := time.Duration(rapid.IntRange(5, 60).Draw(rt, "duration")) * time.Second
					id, err := f.engine.Create(seller, assetID, startPrice, duration)
					if err == nil {
						live[assetID] = id
						ever = append(ever, id)
					}
					return err
				}
				for _, assetID := range assets {
					if err := create(assetID); err != nil {
						rt.Fatalf("create %d: %v", assetID, err)
					}
				}

				steps := rapid.IntRange(1, 60).Draw(rt, "steps")
				for i := 0; i < steps; i++ {
					assetID := rapid.SampledFrom(assets).Draw(rt, "asset")
					bidder := rapid.SampledFrom(bidders).Draw(rt, "bidder")
					id, isLive := live[assetID]
					if !isLive && len(ever) > 0 {
						id = rapid.SampledFrom(ever).Draw(rt, "past")
					}
					poolBefore := f.engine.PoolBalance()
					stakeBefore := f.engine.StakeOf(id, bidder)

					switch rapid.IntRange(0, 7).Draw(rt, "op") {
					case 0, 1:
						amount := amt(int64(rapid.IntRange(1, 6000).Draw(rt, "amount")))
						_, err = f.engine.Bid(id, bidder, amount)
					case 2:
						_, err = f.engine.Withdraw(id, bidder)
					case 3:
						f.clock.Advance(time.Duration(rapid.IntRange(0, 20).Draw(rt, "seconds")) * time.Second)
						continue
					case 4:
						_, err = f.engine.Cancel(id, seller)
						if err == nil {
							forget(live, id)
						}
					case 5:
						_, err = f.engine.Close(id, seller)
						if err == nil {
							forget(live, id)
						}
					case 6:
						if isLive {
							continue
						}
						err = create(assetID)
					case 7:
						refuseSeller = rapid.Bool().Draw(rt, "refuse")
						_, err = f.engine.Claim(seller)
					}

					if err != nil {
						if !f.engine.PoolBalance().Equal(poolBefore) {
							rt.Fatalf("rejected call moved the pool: %s -> %s (%v)", poolBefore, f.engine.PoolBalance(), err)
						}
						if !f.engine.StakeOf(id, bidder).Equal(stakeBefore) {
							rt.Fatalf("rejected call moved a stake (%v)", err)
						}
					}
					checkConservation(rt, f, ever, bidders, accounts, supply)
				}

				// settling everything still live leaves only withdrawable stakes and credits
				f.clock.Advance(time.Hour)
				for assetID, id := range live {
					if _, err := f.engine.Close(id, seller); err != nil {
						rt.Fatalf("close %d: %v", assetID, err)
					}
				}
				checkConservation(rt, f, ever, bidders, accounts, supply)
				if f.engine.ActiveAuctions() != 0 || f.engine.AuctionCountOf(seller) != 0 {
					rt.Fatalf("auctions left after closing all: %d", f.engine.ActiveAuctions())
				}
			})
		})
	}
}

// forget drops id from the live index; id may belong to any asset.
func forget(live map[AssetID]AuctionID, id AuctionID) {
	for assetID, liveID := range live {
		if liveID == id {
			delete(live, assetID)
		}
	}
}

func totalHeld(l *fakeLedger, accounts []Address) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range accounts {
		sum = sum.Add(l.BalanceOf(a))
	}
	return sum
}

func checkConservation(rt *rapid.T, f *fixture, ever []AuctionID, bidders, accounts []Address, supply decimal.Decimal) {
	if err := f.engine.CheckInvariants(); err != nil {
		rt.Fatalf("invariant: %v", err)
	}
	pool := f.engine.PoolBalance()
	booked := f.engine.CreditOf(seller).Add(f.engine.CreditOf(recipient))
	for _, id := range ever {
		for _, b := range bidders {
			booked = booked.Add(f.engine.StakeOf(id, b))
		}
	}
	if !booked.Equal(pool) {
		rt.Fatalf("pool %s, stakes and credits %s", pool, booked)
	}
	if held := f.ledger.BalanceOf(escrowAddr); !held.Equal(pool) {
		rt.Fatalf("escrow holds %s, pool %s", held, pool)
	}
	if total := totalHeld(f.ledger, accounts); !total.Equal(supply) {
		rt.Fatalf("token supply moved: %s -> %s", supply, total)
	}
}
