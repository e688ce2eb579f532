package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	g2p "github.com/ieee0824/g2p-go"
	"github.com/ieee0824/g2p-go/internal/config"
	"github.com/ieee0824/g2p-go/internal/logging"
	"github.com/ieee0824/g2p-go/internal/server"
)

const version = "0.1.0"

var log = logging.WithComponent("g2pserver")

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.g2prc, /etc/g2p/config.yaml)")
	modelPath := flag.String("model", "", "path to G2P model")
	flag.Parse()

	// ApplyEnv also loads .env when present
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatalf("environment: %v", err)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		log.Fatalf("log level: %v", err)
	}
	if cfg.Model.Path == "" {
		log.Fatalf("no model: set -model, model.path or %s", config.EnvModel)
	}

	p, err := g2p.Open(cfg.Model.Path,
		g2p.WithDecoderConfig(cfg.DecoderConfig()),
		g2p.WithFormat(cfg.Model.Format),
		g2p.WithCache(cfg.Cache.Path),
	)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer p.Close()

	e := server.New(p, cfg.Decoder.NBest, version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Warnf("Starting g2pserver v%s on %s", version, cfg.Addr())
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
