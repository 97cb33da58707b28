// Package cli is the deskctl command line: migrations, directory seeding and
// request inspection against the configured store.
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/config"
	"github.com/garyjia/delegate-desk/internal/container"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/pkg/utils"
)

type options struct {
	configPath string
	envFile    string
	version    string
}

// NewRootCmd builds the deskctl command tree
func NewRootCmd(version string) *cobra.Command {
	opts := &options{version: version}

	root := &cobra.Command{
		Use:     "deskctl",
		Short:   "Operate the delegate request desk",
		Version: version,
		Long: `deskctl inspects and acts on delegate and staff requests, seeds the
staff directory and runs database migrations against the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML config file, empty for defaults")
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "optional .env file")

	root.AddCommand(migrateCmd(opts))
	root.AddCommand(seedStaffCmd(opts))
	root.AddCommand(listCmd(opts))
	root.AddCommand(showCmd(opts))
	root.AddCommand(progressCmd(opts))
	root.AddCommand(actCmd(opts))
	root.AddCommand(expiredCmd(opts))

	return root
}

func (o *options) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath, o.envFile)
	if err != nil {
		return nil, nil, err
	}

	// Logs go to stderr so command output stays clean
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      "warn",
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// withContainer runs fn against a started container without background workers
func (o *options) withContainer(ctx context.Context, fn func(ctx context.Context, c *container.Container) error) error {
	cfg, logger, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	c, err := container.NewContainer(cfg.ToContainerConfig(o.version), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx, false); err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	return fn(ctx, c)
}

// findRequest accepts a numeric id or a request number such as M012
func findRequest(ctx context.Context, c *container.Container, ref string) (*entity.Request, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.Services().Requests.Get(ctx, id)
	}
	return c.Services().Requests.GetByNumber(ctx, ref)
}
