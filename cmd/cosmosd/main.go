// Package main provides cosmosd - the Cosmos wallet's HTTP daemon.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/config"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/coordinator"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/network"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/rpc"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/spv"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/storage"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/walletreg"
	"github.com/Gigamonkey-BSV/cosmos-wallet/pkg/logging"
)

var version = "0.1.0-dev"

func main() {
	var (
		envFile     = flag.String("env-file", "", "Path to .env file (default: .env in the working directory)")
		ipAddress   = flag.String("ip-address", "", "Bind address, overrides COSMOS_WALLET_IP_ADDRESS")
		port        = flag.Int("port", 0, "Bind port, overrides COSMOS_WALLET_PORT_NUMBER")
		sqlitePath  = flag.String("sqlite-path", "", "sqlite database path, overrides COSMOS_SQLITE_PATH")
		threads     = flag.Int("threads", 0, "Worker count, overrides COSMOS_THREADS (loaded but not read by the coordinator)")
		testnet     = flag.Bool("testnet", false, "Use testnet chain parameters instead of mainnet")
		networkURL  = flag.String("network-url", "https://api.whatsonchain.com/v1/bsv/main", "Block-explorer base URL for the network adapter")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("cosmosd %s", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("loading configuration", "error", err)
	}
	cfg.ApplyFlags(*ipAddress, *port, *sqlitePath, *threads)

	log = logging.New(&logging.Config{Level: *logLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	params := &chaincfg.MainNetParams
	if *testnet {
		params = &chaincfg.TestNet3Params
	}

	store, err := storage.New(&storage.Config{Path: cfg.SQLitePath})
	if err != nil {
		log.Fatal("opening storage", "error", err)
	}
	defer store.Close()
	log.Info("storage initialized", "path", cfg.SQLitePath)

	reg, err := walletreg.NewRegistry(store)
	if err != nil {
		log.Fatal("loading wallet registry", "error", err)
	}

	spvStore := spv.NewStore(store)
	txStore := txdb.NewSQLiteStore(store, spvStore, params)

	rnd, err := random.New(random.Config{Seed: cfg.Seed, Nonce: cfg.Nonce})
	if err != nil {
		log.Fatal("seeding randomness", "error", err)
	}

	net := network.NewWhatsOnChain(*networkURL)

	coord := coordinator.New(coordinator.Params{
		Registry:    reg,
		TxStore:     txStore,
		SPVStore:    spvStore,
		Network:     net,
		Randomness:  rnd,
		ChainParams: params,
		Log:         log,
	})

	server := rpc.NewServer(coord, log, version)
	if err := server.Start(cfg.Addr()); err != nil {
		log.Fatal("starting rpc server", "error", err)
	}
	log.Info("cosmosd ready", "endpoint", cfg.Endpoint, "listening", cfg.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("signal received, shutting down")
	case <-server.ShutdownRequested():
		log.Info("shutdown requested via /shutdown, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("goodbye")
}
