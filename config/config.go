// Package config loads the escrowd YAML configuration and builds the in-memory
// ledger and registry from its genesis section.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/server"
)

type Config struct {
	Engine  Engine  `yaml:"engine"`
	Server  Server  `yaml:"server"`
	API     API     `yaml:"api"`
	Receipt Receipt `yaml:"receipt"`
	Genesis Genesis `yaml:"genesis"`
}

type Engine struct {
	Policy           string `yaml:"policy"`
	MinStartPrice    string `yaml:"min_start_price"`
	FeeRate          string `yaml:"fee_rate"`
	FeeRecipient     string `yaml:"fee_recipient"`
	Escrow           string `yaml:"escrow"`
	Operator         string `yaml:"operator"`
	AmountPrecision  int32  `yaml:"amount_precision"`
	StrictInvariants bool   `yaml:"strict_invariants"`
}

type Server struct {
	Network     string        `yaml:"network"`
	Listen      string        `yaml:"listen"`
	VsockPort   uint32        `yaml:"vsock_port"`
	MaxWorkers  int           `yaml:"max_workers"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type API struct {
	// Listen is the HTTP query API address; empty disables it.
	Listen string `yaml:"listen"`
	CORS   string `yaml:"cors"`
}

type Receipt struct {
	// KeyFile is a PEM P-384 private key; empty generates a fresh key per process.
	KeyFile string `yaml:"key_file"`
}

// Default returns a configuration with every section defaulted except addresses.
func Default() *Config {
	eng := core.DefaultConfig()
	srv := server.DefaultConfig()
	return &Config{
		Engine: Engine{
			Policy:        string(eng.Policy),
			MinStartPrice: eng.MinStartPrice.String(),
			FeeRate:       eng.FeeRate.String(),
		},
		Server: Server{
			Network:     srv.Network,
			Listen:      srv.Address,
			VsockPort:   srv.VsockPort,
			MaxWorkers:  srv.MaxWorkers,
			ReadTimeout: srv.ReadTimeout,
		},
		API: API{
			Listen: "127.0.0.1:8669",
			CORS:   "",
		},
		Genesis: Genesis{
			Ledger:   LedgerGenesis{Symbol: "ESC"},
			Registry: RegistryGenesis{},
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	if err := c.ServerConfig().Validate(); err != nil {
		return errors.Wrap(err, "server")
	}
	if err := c.Genesis.Validate(); err != nil {
		return errors.Wrap(err, "genesis")
	}
	return nil
}

// EngineConfig converts the engine section into a validated core.Config.
func (c *Config) EngineConfig() (core.Config, error) {
	policy, err := core.ParsePolicyKind(c.Engine.Policy)
	if err != nil {
		return core.Config{}, errors.Wrap(err, "engine.policy")
	}
	minStart, err := decimal.NewFromString(c.Engine.MinStartPrice)
	if err != nil {
		return core.Config{}, errors.Wrap(err, "engine.min_start_price")
	}
	feeRate, err := decimal.NewFromString(c.Engine.FeeRate)
	if err != nil {
		return core.Config{}, errors.Wrap(err, "engine.fee_rate")
	}
	addrs := make([]common.Address, 3)
	for i, f := range []struct{ name, value string }{
		{"engine.fee_recipient", c.Engine.FeeRecipient},
		{"engine.escrow", c.Engine.Escrow},
		{"engine.operator", c.Engine.Operator},
	} {
		if addrs[i], err = parseAddress(f.name, f.value); err != nil {
			return core.Config{}, err
		}
	}

	cfg := core.Config{
		Policy:           policy,
		MinStartPrice:    minStart,
		FeeRate:          feeRate,
		FeeRecipient:     addrs[0],
		Escrow:           addrs[1],
		Operator:         addrs[2],
		AmountPrecision:  c.Engine.AmountPrecision,
		StrictInvariants: c.Engine.StrictInvariants,
	}
	if err := cfg.Validate(); err != nil {
		return core.Config{}, errors.Wrap(err, "engine")
	}
	return cfg, nil
}

func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Network:     c.Server.Network,
		Address:     c.Server.Listen,
		VsockPort:   c.Server.VsockPort,
		MaxWorkers:  c.Server.MaxWorkers,
		ReadTimeout: c.Server.ReadTimeout,
	}
}

func parseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, value)
	}
	return common.HexToAddress(value), nil
}
