// cmd/binsync/main.go
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/FairForge/binsync/internal/config"
	"github.com/FairForge/binsync/internal/manifest"
	"github.com/FairForge/binsync/internal/pack"
	"github.com/FairForge/binsync/internal/provider"
	"github.com/FairForge/binsync/internal/publisher"
	"github.com/FairForge/binsync/internal/syncer"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg := config.DefaultConfig()
	config.LoadFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var err error
	switch os.Args[1] {
	case "manifest":
		err = runManifest(os.Args[2:], cfg, logger)
	case "serve":
		err = runServe(os.Args[2:], cfg, logger)
	case "sync":
		err = runSync(os.Args[2:], cfg, logger)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Fatal("command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: binsync <manifest|serve|sync> ...")
	fmt.Fprintln(os.Stderr, "  binsync manifest <root> <out.binsync>")
	fmt.Fprintln(os.Stderr, "  binsync serve <root> [:addr]")
	fmt.Fprintln(os.Stderr, "  binsync sync <dest-root> <remote-base-url>")
}

// runManifest generates a manifest for a directory tree and writes its
// binary encoding to a file — the publishing-side half of the pack
// publisher CLI surface.
func runManifest(args []string, cfg *config.Config, logger *zap.Logger) error {
	if len(args) < 2 {
		return fmt.Errorf("manifest: need <root> <out.binsync>")
	}
	root, out := args[0], args[1]

	m, err := manifest.Build(root, cfg.Manifest.Workers, logger)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := manifest.Encode(f, m); err != nil {
		return err
	}

	logger.Info("manifest written", zap.String("root", root), zap.String("out", out), zap.Int("files", len(m.Files)))
	return nil
}

// runServe builds a manifest and RemoteManifest for root and serves them
// over HTTP.
func runServe(args []string, cfg *config.Config, logger *zap.Logger) error {
	if len(args) < 1 {
		return fmt.Errorf("serve: need <root> [addr]")
	}
	root := args[0]
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if len(args) > 1 {
		addr = args[1]
	}

	m, err := manifest.Build(root, cfg.Manifest.Workers, logger)
	if err != nil {
		return err
	}

	rm := pack.BuildRemote(m, cfg.Pack.SizeLimit)
	src := publisher.NewFileTreePackSource(root, m)
	srv := publisher.NewServer(&rm, src, logger)

	logger.Info("publisher listening", zap.String("addr", addr), zap.Int("packs", len(rm.Packs)))
	return http.ListenAndServe(addr, srv)
}

// runSync fetches a remote manifest, plans a diff against dest-root, and
// applies it through the Remote chunk provider.
func runSync(args []string, cfg *config.Config, logger *zap.Logger) error {
	if len(args) < 2 {
		return fmt.Errorf("sync: need <dest-root> <remote-base-url>")
	}
	destRoot, baseURL := args[0], args[1]

	resp, err := http.Get(baseURL + "/manifest.binsync")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	rm, err := pack.DecodeRemote(resp.Body)
	if err != nil {
		return err
	}

	rp := provider.NewRemote(baseURL, rm, provider.RemoteOptions{
		CacheLimit:     cfg.Remote.CacheLimit,
		RequestsPerSec: cfg.Remote.RatePerSecond,
		Logger:         logger,
	})
	defer rp.Close()

	s := syncer.New(destRoot, rp, &rm.Source, logger)
	s.OnProgress(func(pct int) {
		logger.Info("sync progress", zap.Int("percent", pct))
	})

	if err := s.Sync(); err != nil {
		return err
	}

	logger.Info("sync complete", zap.String("dest", destRoot))
	return nil
}
