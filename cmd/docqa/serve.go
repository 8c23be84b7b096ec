package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var initOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if initOnStart && a.request.ModelPath != "" {
				done := a.session.InitializeAsync(context.Background(), a.request)
				go func() {
					if err := <-done; err != nil {
						a.logger.Warn("initialize on start failed",
							zap.String("code", string(errs.Classify(err))), zap.Error(err))
					}
				}()
			}

			srv := server.NewServer(a.session, a.request, &a.cfg.Server, utils.Named(a.logger, "server"))
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				a.logger.Info("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Stop(ctx)
			}
		},
	}
	cmd.Flags().BoolVar(&initOnStart, "init", true, "initialize the configured document and model at startup")
	return cmd
}
