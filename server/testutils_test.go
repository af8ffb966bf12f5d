package server

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/escrowapi"
	"github.com/cloudx-io/openescrow/ledger"
	"github.com/cloudx-io/openescrow/receipt"
	"github.com/cloudx-io/openescrow/registry"
)

var (
	admin        = common.HexToAddress("0xa000000000000000000000000000000000000001")
	ledgerAddr   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	registryAddr = common.HexToAddress("0x2000000000000000000000000000000000000002")
	escrowAddr   = common.HexToAddress("0xe5c0000000000000000000000000000000000001")
	recipient    = common.HexToAddress("0xfee0000000000000000000000000000000000001")

	seller  = common.HexToAddress("0x5e11e00000000000000000000000000000000001")
	bidderA = common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	bidderB = common.HexToAddress("0xbbbb000000000000000000000000000000000001")
)

const testAsset core.AssetID = 7

// testClock is safe for use from server worker goroutines.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type world struct {
	server   *Server
	engine   *core.Engine
	ledger   *ledger.Memory
	registry *registry.Memory
	clock    *testClock
	keys     *receipt.KeyManager
}

func newWorld(t *testing.T, cfg Config) *world {
	t.Helper()

	tokens := ledger.New(ledgerAddr, admin, "ESC", decimal.Zero)
	for account, balance := range map[common.Address]int64{seller: 10000, bidderA: 20000, bidderB: 20000} {
		assert.NoError(t, tokens.Mint(admin, account, decimal.NewFromInt(balance)))
		assert.NoError(t, tokens.Approve(account, escrowAddr, decimal.NewFromInt(balance)))
	}

	assets := registry.New(registryAddr, admin)
	assert.NoError(t, assets.AddCustodian(admin, escrowAddr))
	assert.NoError(t, assets.Mint(admin, seller, testAsset))
	assert.NoError(t, assets.Approve(seller, escrowAddr, testAsset))

	engineCfg := core.DefaultConfig()
	engineCfg.FeeRecipient = recipient
	engineCfg.Escrow = escrowAddr
	engineCfg.Operator = admin
	engineCfg.StrictInvariants = true

	clock := &testClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	engine, err := core.NewEngine(engineCfg, tokens, assets, core.WithClock(clock))
	assert.NoError(t, err)

	keys, err := receipt.NewKeyManager()
	assert.NoError(t, err)
	signer, err := receipt.NewSigner(keys, engineCfg.AmountPrecision)
	assert.NoError(t, err)

	srv, err := New(cfg, engine, signer)
	assert.NoError(t, err)

	return &world{server: srv, engine: engine, ledger: tokens, registry: assets, clock: clock, keys: keys}
}

func testServerConfig() Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.MaxWorkers = 4
	cfg.ReadTimeout = 2 * time.Second
	return cfg
}

func (w *world) handle(t *testing.T, req escrowapi.Request) *escrowapi.Response {
	t.Helper()
	resp := w.server.Handle(&req)
	assert.NotNil(t, resp)
	return resp
}
