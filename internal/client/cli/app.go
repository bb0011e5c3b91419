package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/liferepo/internal/client/config"
	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/client/services"
	"github.com/dmitrijs2005/liferepo/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config  *config.Config
	service services.AnnotationService
	log     logging.Logger
	scanner *bufio.Scanner
	out     io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config, svc services.AnnotationService, log logging.Logger) *App {
	return &App{
		config:  c,
		service: svc,
		log:     log,
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

// Run starts the connectivity watcher and blocks in the REPL until the
// user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if err := a.service.Close(); err != nil {
			a.log.Warn(ctx, "service close", "err", err)
		}
	}()

	fmt.Fprintln(a.out, "Welcome to liferepo CLI (type 'help' for commands)")
	if g, err := a.service.ActiveGroup(); err == nil {
		fmt.Fprintf(a.out, "Resumed group %s with %d file(s)\n", g.GroupID, len(g.Files))
	}

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		a.service.Subscribe(a.printProgress)
	}

	runREPL(ctx, a, a.getStatus, a.scanner)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.config.OnlineCheckInterval)
	defer cancel()

	if err := a.service.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

func (a *App) getStatus() string {
	s := string(a.Mode())
	if st := a.service.Stats(); st.Total > 0 {
		if s != "" {
			s += " "
		}
		s += fmt.Sprintf("%d/%d", st.Uploaded, st.Total)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// printProgress redraws a single status line while an upload runs.
func (a *App) printProgress(s models.Stats) {
	if !a.service.IsUploading() {
		return
	}
	fmt.Fprintf(a.out, "\r%s", progressLine(s))
}

func progressLine(s models.Stats) string {
	return fmt.Sprintf("uploading: %d/%d done, %d in flight, %d failed ", s.Uploaded, s.Total, s.Uploading, s.Failed)
}
