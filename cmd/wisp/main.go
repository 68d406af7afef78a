package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"wisp/internal/bootstrap"
	"wisp/internal/progress"
	"wisp/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wisp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := bootstrap.Open(ctx, bootstrap.Options{Service: "wisp", LogFile: true})
	if err != nil {
		return err
	}
	defer env.Close()

	events := make(chan progress.Event, 64)
	syn, feed := env.NewSyncer(&progress.ChanEmitter{Ch: events})

	syncCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	syncDone := make(chan error, 1)
	go func() {
		syncDone <- syn.Run(syncCtx, feed)
	}()

	model := ui.NewAppModel(ui.Deps{
		Store:     env.Store,
		Projects:  env.Backend,
		Gallery:   env.Backend,
		App:       env.API,
		Refresher: syn,
		Sessions:  env.Sessions,
		Progress:  events,
		AppDomain: env.Config.AppDomain,
		Logger:    env.Logger,
	})
	p := tea.NewProgram(model.AsTeaModel(), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	cancel()
	if err := <-syncDone; err != nil && !errors.Is(err, context.Canceled) {
		env.Logger.Warn("sync stopped", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}

	switch {
	case model.AccountDeleted:
		fmt.Println("Your account was deleted.")
	case model.SignedOut:
		fmt.Println("Signed out. Run `wispctl login` to sign in again.")
	}
	return nil
}
