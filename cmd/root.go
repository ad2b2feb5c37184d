// Package cmd defines the contentd command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/config"
	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/selftest"
	"github.com/grow-with-growth/growyourneed/internal/server"
)

type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands need from the service graph. Tests inject a fake.
type App interface {
	Run(ctx context.Context) error
	Close() error
	Logger() *zap.Logger
	Prober() content.Prober
	Suite() Suite
}

// Suite runs the sample queries.
type Suite interface {
	RunAll(ctx context.Context) selftest.Result
	RunCategory(ctx context.Context, c content.Category) selftest.CategoryResult
}

type serverApp struct{ *server.App }

func (a serverApp) Suite() Suite { return a.App.Suite() }

// newApp is the application factory; tests replace it.
var newApp = func(path string) (App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app, err := server.Build(&cfg)
	if err != nil {
		return nil, err
	}
	return serverApp{app}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:           "contentd",
		Short:         "Verified content aggregation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCmd(), newProbeCmd(), newSelfTestCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "contentd: %v\n", err)
		os.Exit(1)
	}
}
