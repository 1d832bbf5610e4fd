package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jfcl7/jcblock/internal/application"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Screen incoming calls until interrupted",
		Long:  "run initializes the modem, loads both lists and screens calls until SIGINT or SIGTERM. SIGHUP reloads the lists before the next call.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hangups := make(chan os.Signal, 1)
			signal.Notify(hangups, syscall.SIGHUP)
			defer signal.Stop(hangups)

			return app.runScreening(ctx, hangups)
		},
	}
}

// runScreening screens calls until ctx is done. Every value on hangups
// requests a list reload.
func (a *app) runScreening(ctx context.Context, hangups <-chan os.Signal) error {
	link, err := a.openModem(a.cfg.Modem, a.logger)
	if err != nil {
		return err
	}

	reload := make(chan struct{}, 1)
	svc := application.NewScreeningService(link, a.allowRepo, a.blockRepo, a.callLog, application.ScreeningOptions{
		Clock:         a.clock,
		Logger:        a.logger,
		Sleep:         a.sleep,
		Reload:        reload,
		PurgeInterval: a.cfg.PurgeInterval(),
		Lifetime:      a.cfg.Lifetime(),
	})

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shut down modem: %w", err)
		}
		return nil
	}

	if err := svc.Start(ctx); err != nil {
		return errors.Join(err, shutdown())
	}
	a.logger.WithField("port", a.cfg.Modem.Port).Info("waiting for calls")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hangups:
				a.logger.Info("reload requested")
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		}
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) && ctx.Err() != nil {
		a.logger.Info("stopping")
		runErr = nil
	}

	return errors.Join(runErr, shutdown())
}
