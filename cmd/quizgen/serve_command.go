package main

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"quizgen/internal/api"
	"quizgen/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generate/poll HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another quizgen server is already running for this state directory")
			}
			defer func() { _ = lock.Unlock() }()

			svc, cleanup, err := ctx.newQuizService()
			if err != nil {
				return err
			}
			defer cleanup()

			logger := ctx.log()
			srv, err := api.NewServer(cfg, svc, logger)
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			if isTerminal(cmd.ErrOrStderr()) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s (Ctrl+C to stop)\n", srv.Addr())
			}

			<-runCtx.Done()
			srv.Stop()
			logger.Info("api server stopped", logging.String(logging.FieldEventType, "server_stopped"))
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind for this run")
	return cmd
}
