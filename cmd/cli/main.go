package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/liferepo/internal/client/cli"
	"github.com/dmitrijs2005/liferepo/internal/client/client"
	"github.com/dmitrijs2005/liferepo/internal/client/config"
	"github.com/dmitrijs2005/liferepo/internal/client/services"
	"github.com/dmitrijs2005/liferepo/internal/client/session"
	"github.com/dmitrijs2005/liferepo/internal/client/upload"
	"github.com/dmitrijs2005/liferepo/internal/filex"
	"github.com/dmitrijs2005/liferepo/internal/logging"

	_ "modernc.org/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return fmt.Errorf("database directory: %w", err)
	}
	db, err := client.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()
	repos := client.NewRepositories(db)

	api := client.NewHTTPClient(cfg.APIURL, cfg.RequestTimeout)
	fs := filex.OS{}

	svc := services.NewAnnotationService(services.Deps{
		Client: api,
		Orchestrator: upload.NewOrchestrator(api, fs, log, upload.Config{
			BatchSize:   cfg.BatchSize,
			MaxFileSize: cfg.MaxUploadFileSize,
		}),
		Drafts:   repos.Drafts,
		Active:   repos.Active,
		Session:  session.New(nil),
		FS:       fs,
		LockPath: cfg.DatabasePath + ".upload.lock",
		Log:      log,
	})
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn(context.Background(), "upload lock not closed", "err", err)
		}
	}()

	if _, err := svc.Restore(ctx); err != nil {
		log.Warn(ctx, "active group not restored", "err", err)
	}

	cli.NewApp(cfg, svc, log).Run(ctx)
	return nil
}
