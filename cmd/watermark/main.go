package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"photomark/internal/config"
	"photomark/internal/logging"
	"photomark/pkg/batch"
	"photomark/pkg/export"
	"photomark/pkg/template"
	"photomark/pkg/watermark"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("watermark", flag.ContinueOnError)
	opts := registerFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	logger, flush := logging.NewLogger(cfg.LogFile, cfg.Env)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("open template store", zap.Error(err))
		return exitUsage
	}
	defer closeStore()

	switch {
	case opts.listTemplates:
		names, err := store.List(ctx)
		if err != nil {
			logger.Error("list templates", zap.Error(err))
			return exitFailed
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return exitOK
	case opts.deleteTemplate != "":
		if err := store.Delete(ctx, opts.deleteTemplate); err != nil {
			logger.Error("delete template", zap.Error(err))
			return exitFailed
		}
		return exitOK
	}

	settings, err := resolveSettings(ctx, fs, opts, cfg, store)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	if opts.saveTemplate != "" {
		if err := settings.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}
		if err := store.Save(ctx, opts.saveTemplate, settings); err != nil {
			logger.Error("save template", zap.Error(err))
			return exitFailed
		}
		if fs.NArg() == 0 {
			return exitOK
		}
	}

	if err := validateRequired(opts.outDir, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return exitUsage
	}

	paths, err := expandSources(fs.Args(), opts.recursive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no supported images found")
		return exitUsage
	}

	workers := cfg.Workers
	if fs.Changed("workers") {
		workers = opts.workers
	}

	renderer := watermark.NewRenderer(watermark.NewFontResolver(fontDirs(cfg), logger), logger)
	runner := batch.NewRunner(renderer, export.New(logger),
		batch.WithWorkers(workers),
		batch.WithLogger(logger),
	)

	res, err := runner.Run(ctx, paths, settings, opts.outDir, func(p batch.Progress) {
		status := "ok"
		if p.Err != nil {
			status = "FAILED"
		}
		fmt.Printf("[%d/%d] %s %s\n", p.Done, p.Total, status, p.Path)
	})
	if err != nil && res.Succeeded == 0 && len(res.Failed) == 0 && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	saveLast(cfg, settings, logger)

	fmt.Printf("exported %d of %d image(s)\n", res.Succeeded, len(paths))
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "failed: %s: %s\n", f.Path, f.Reason)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(os.Stderr, "cancelled: %d image(s) not processed\n", len(res.Skipped))
	}
	if err != nil || len(res.Failed) > 0 {
		return exitFailed
	}
	return exitOK
}

func openStore(cfg *config.Config, logger *zap.Logger) (template.Store, func(), error) {
	if cfg.Templates.DB != "" {
		s, err := template.OpenSQLite(cfg.Templates.DB, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	s, err := template.NewDirStore(cfg.Templates.Dir, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

func fontDirs(cfg *config.Config) []string {
	if len(cfg.FontDirs) == 0 {
		return nil
	}
	return append(cfg.FontDirs, watermark.DefaultFontDirs...)
}

func validateRequired(outDir string, args []string) error {
	if outDir == "" {
		return errors.New("missing --out")
	}
	if len(args) == 0 {
		return errors.New("missing input files")
	}
	return nil
}
