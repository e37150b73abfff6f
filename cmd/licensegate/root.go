package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"licensegate/internal/app"
	"licensegate/internal/config"
	"licensegate/pkg/contracts"
)

type cli struct {
	configPath string
	variant    string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &cli{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "License validation service",
		Long:          "licensegate validates license keys and binds them to a hardware id on first use.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       contracts.Version,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file (default $"+config.ConfigFileEnv+")")
	cmd.PersistentFlags().StringVar(&c.variant, "variant", "", "override the configured variant (static or remote)")

	cmd.AddCommand(
		newServeCmd(c),
		newCheckSourceCmd(c),
		newVersionCmd(c),
	)
	return cmd
}

// loadConfig applies the --variant override on top of the loaded config.
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("variant") {
		cfg.Variant = strings.ToLower(strings.TrimSpace(c.variant))
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg, app.WithStdout(c.stdout))
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
}

func newCheckSourceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check-source",
		Short: "Fetch the remote key list once and report how many keys it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Variant != config.VariantRemote {
				return fmt.Errorf("check-source needs the %s variant, got %q", config.VariantRemote, cfg.Variant)
			}

			// Logs go to stderr so stdout carries only the result.
			application, err := app.NewApplication(cfg, app.WithStdout(c.stderr))
			if err != nil {
				return err
			}
			defer application.Stop(context.Background())

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.KeySource.FetchTimeout)
			defer cancel()
			if err := application.WarmUp(ctx); err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "%d keys\n", application.Services.Remote.Cache().Len())
			return nil
		},
	}
}

func newVersionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(c.stdout, contracts.GetFullVersionString())
		},
	}
}
