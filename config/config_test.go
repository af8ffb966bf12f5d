package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/openescrow/core"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/escrowd.yaml")
	assert.NoError(t, err)

	engineCfg, err := cfg.EngineConfig()
	assert.NoError(t, err)
	check.Equal(t, core.PolicyReplace, engineCfg.Policy)
	check.Equal(t, "0.05", engineCfg.FeeRate.String())
	check.Equal(t, "1000", engineCfg.MinStartPrice.String())
	check.True(t, engineCfg.StrictInvariants)

	srv := cfg.ServerConfig()
	check.Equal(t, "127.0.0.1:5500", srv.Address)
	check.Equal(t, 8, srv.MaxWorkers)
	check.Equal(t, 10*time.Second, srv.ReadTimeout)
	check.Equal(t, uint32(5000), srv.VsockPort)

	check.Equal(t, "https://example.com", cfg.API.CORS)
}

func TestGenesisBuild(t *testing.T) {
	cfg, err := Load("testdata/escrowd.yaml")
	assert.NoError(t, err)
	engineCfg, err := cfg.EngineConfig()
	assert.NoError(t, err)

	tokens, assets, err := cfg.Genesis.Build(engineCfg.Escrow)
	assert.NoError(t, err)

	sellerAddr := common.HexToAddress("0x5e11e00000000000000000000000000000000001")
	bidder := common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	check.Equal(t, "10000", tokens.BalanceOf(sellerAddr).String())
	check.Equal(t, "0", tokens.Allowance(sellerAddr, engineCfg.Escrow).String())
	check.Equal(t, "20000", tokens.Allowance(bidder, engineCfg.Escrow).String())
	check.Equal(t, "30000", tokens.TotalSupply().String())

	owner, err := assets.OwnerOf(7)
	assert.NoError(t, err)
	check.Equal(t, sellerAddr, owner)
	check.True(t, assets.IsAuthorizedCustodian(engineCfg.Escrow, 7))
	check.False(t, assets.IsAuthorizedCustodian(engineCfg.Escrow, 8))

	// the built collaborators drive a working engine
	engine, err := core.NewEngine(engineCfg, tokens, assets)
	assert.NoError(t, err)
	_, err = engine.Create(sellerAddr, 7, engineCfg.MinStartPrice, time.Minute)
	check.NoError(t, err)
}

func TestParse_Invalid(t *testing.T) {
	valid := `
engine:
  fee_recipient: "0xfee0000000000000000000000000000000000001"
  escrow: "0xe5c0000000000000000000000000000000000001"
  operator: "0xa000000000000000000000000000000000000001"
genesis:
  ledger: {address: "0x1000000000000000000000000000000000000001", admin: "0xa000000000000000000000000000000000000001"}
  registry: {address: "0x2000000000000000000000000000000000000002", admin: "0xa000000000000000000000000000000000000001"}
`
	cfg, err := Parse([]byte(valid))
	assert.NoError(t, err)
	check.Equal(t, "accumulate", cfg.Engine.Policy)
	check.Equal(t, "0.04", cfg.Engine.FeeRate)

	tests := []struct {
		name    string
		replace [2]string
		message string
	}{
		{"bad policy", [2]string{"engine:\n", "engine:\n  policy: dutch\n"}, "engine.policy"},
		{"bad fee rate", [2]string{"engine:\n", "engine:\n  fee_rate: \"1.5\"\n"}, "fee rate"},
		{"bad address", [2]string{"0xe5c0000000000000000000000000000000000001", "escrow"}, "engine.escrow"},
		{"unknown field", [2]string{"engine:\n", "engine:\n  colour: red\n"}, "colour"},
		{"bad network", [2]string{"genesis:\n", "server: {network: udp}\ngenesis:\n"}, "unknown network"},
		{"bad asset", [2]string{"genesis:\n", "genesis:\n  assets: [{id: 0, owner: \"0x5e11e00000000000000000000000000000000001\"}]\n"}, "id must be non-zero"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(strings.Replace(valid, tt.replace[0], tt.replace[1], 1)))
			assert.Error(t, err)
			check.True(t, strings.Contains(err.Error(), tt.message))
		})
	}
}
