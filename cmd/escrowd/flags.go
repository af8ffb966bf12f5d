package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "path to the YAML configuration file",
		EnvVar: "ESCROWD_CONFIG",
	}
	networkFlag = cli.StringFlag{
		Name:   "network",
		Usage:  "stream server transport (tcp|vsock), overrides server.network",
		EnvVar: "ESCROWD_NETWORK",
	}
	listenFlag = cli.StringFlag{
		Name:   "listen",
		Usage:  "tcp listen address of the stream server, overrides server.listen",
		EnvVar: "ESCROWD_LISTEN",
	}
	vsockPortFlag = cli.UintFlag{
		Name:   "vsock-port",
		Usage:  "vsock port of the stream server, overrides server.vsock_port",
		EnvVar: "ESCROWD_VSOCK_PORT",
	}
	maxWorkersFlag = cli.IntFlag{
		Name:   "max-workers",
		Usage:  "maximum concurrent stream connections, overrides server.max_workers",
		EnvVar: "ESCROWD_MAX_WORKERS",
	}
	httpFlag = cli.StringFlag{
		Name:   "http",
		Usage:  "HTTP query API listen address, overrides api.listen",
		EnvVar: "ESCROWD_HTTP",
	}
	httpCorsFlag = cli.StringFlag{
		Name:   "http-cors",
		Usage:  "comma separated list of domains from which to accept cross origin requests to the API",
		EnvVar: "ESCROWD_HTTP_CORS",
	}
	receiptKeyFlag = cli.StringFlag{
		Name:   "receipt-key",
		Usage:  "PEM P-384 private key used to sign settlement receipts, overrides receipt.key_file",
		EnvVar: "ESCROWD_RECEIPT_KEY",
	}
	logLevelFlag = cli.StringFlag{
		Name:   "log-level",
		Value:  "info",
		Usage:  "log level (debug|info|warn|error)",
		EnvVar: "ESCROWD_LOG_LEVEL",
	}
)
