package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/cloudx-io/openescrow/api"
	"github.com/cloudx-io/openescrow/config"
	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/metrics"
	"github.com/cloudx-io/openescrow/receipt"
	"github.com/cloudx-io/openescrow/server"
)

var (
	version   string
	gitCommit string
)

func fullVersion() string {
	if version == "" {
		return "dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "escrowd",
		Usage:   "Escrow auction engine with signed settlement receipts",
		Flags: []cli.Flag{
			configFlag,
			networkFlag,
			listenFlag,
			vsockPortFlag,
			maxWorkersFlag,
			httpFlag,
			httpCorsFlag,
			receiptKeyFlag,
			logLevelFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "keygen",
				Usage:  "generate a receipt signing key and print it as PEM",
				Action: keygenAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	if err := initLogger(ctx); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	tokens, assets, err := cfg.Genesis.Build(engineCfg.Escrow)
	if err != nil {
		return fmt.Errorf("build genesis: %w", err)
	}

	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	engine, err := core.NewEngine(engineCfg, tokens, assets, core.WithObserver(collector))
	if err != nil {
		return err
	}

	keys, err := loadKeys(cfg.Receipt.KeyFile)
	if err != nil {
		return err
	}
	signer, err := receipt.NewSigner(keys, engineCfg.AmountPrecision)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.ServerConfig(), engine, signer)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("escrow engine started",
		"version", fullVersion(),
		"policy", engineCfg.Policy,
		"feeRate", engineCfg.FeeRate,
		"escrow", engineCfg.Escrow.Hex(),
		"ledger", tokens.Address().Hex(),
		"registry", assets.Address().Hex(),
		"receiptKey", keys.KeyID())

	shutdownAPI := startAPIServer(cfg.API, api.New(engine, signer, prometheus.DefaultGatherer, cfg.API.CORS))
	defer shutdownAPI()

	return srv.Start(runCtx)
}

func keygenAction(ctx *cli.Context) error {
	keys, err := receipt.NewKeyManager()
	if err != nil {
		return err
	}
	privatePEM, err := keys.PrivateKeyPEM()
	if err != nil {
		return err
	}
	publicPEM, err := keys.PublicKeyPEM()
	if err != nil {
		return err
	}
	fmt.Print(privatePEM)
	fmt.Fprintf(os.Stderr, "key id: %s\n%s", keys.KeyID(), publicPEM)
	return nil
}

func initLogger(ctx *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String(logLevelFlag.Name))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", ctx.String(logLevelFlag.Name), err)
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})))
	return nil
}

// loadConfig reads --config and applies flag overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return nil, errors.New("--config is required: the genesis section names the ledger and registry")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(networkFlag.Name) {
		cfg.Server.Network = strings.ToLower(ctx.String(networkFlag.Name))
	}
	if ctx.IsSet(listenFlag.Name) {
		cfg.Server.Listen = ctx.String(listenFlag.Name)
	}
	if ctx.IsSet(vsockPortFlag.Name) {
		cfg.Server.VsockPort = uint32(ctx.Uint(vsockPortFlag.Name))
	}
	if ctx.IsSet(maxWorkersFlag.Name) {
		cfg.Server.MaxWorkers = ctx.Int(maxWorkersFlag.Name)
	}
	if ctx.IsSet(httpFlag.Name) {
		cfg.API.Listen = ctx.String(httpFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.API.CORS = ctx.String(httpCorsFlag.Name)
	}
	if ctx.IsSet(receiptKeyFlag.Name) {
		cfg.Receipt.KeyFile = ctx.String(receiptKeyFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadKeys(path string) (*receipt.KeyManager, error) {
	if path == "" {
		slog.Warn("no receipt key configured, generating an ephemeral one")
		return receipt.NewKeyManager()
	}
	return receipt.LoadKeyManager(path)
}

func startAPIServer(cfg config.API, handler http.Handler) func() {
	if cfg.Listen == "" {
		return func() {}
	}
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("API server listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server stopped", "err", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("failed to shut down API server", "err", err)
		}
	}
}
