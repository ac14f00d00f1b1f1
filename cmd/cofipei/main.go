package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cofipei/internal/cli"
	"cofipei/internal/config"
	"cofipei/internal/core"
	"cofipei/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cofipei",
		Short: "Render expense and income charts from transaction lists",
		Long: `Cofipei aggregates transactions by category and renders a pie chart of
expenses next to a bar chart of income, served over HTTP or rendered offline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return cli.LoadEnvFile(envFile)
		},
	}
	root.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(newServeCmd(), newRenderCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chart HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg)

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			app, err := cli.NewApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("Failed to release resources", log.FieldError, err)
				}
			}()

			logger.Info("Starting cofipei",
				"port", cfg.Port,
				"grpc_health_addr", cfg.GRPCHealthAddr,
				"reports_enabled", cfg.ReportDBPath != "",
				"events_enabled", cfg.AMQPURL != "")
			if err := app.Serve(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().String("port", "", "HTTP port (overrides PORT)")
	return cmd
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a chart from a payload file without starting a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg)

			payload, err := readPayload(input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			app, err := cli.NewApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			resp, err := app.Charts.Generate(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), resp, output)
		},
	}
	cmd.Flags().String("input", "-", "payload JSON file, - for stdin")
	cmd.Flags().String("output", "", "write the PNG here and omit it from the printed JSON")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return cli.LoadAndValidateConfig(path, func(cfg *config.Config) {
		if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
			cfg.Port = f.Value.String()
		}
	})
}

func readPayload(path string, stdin io.Reader) (core.ChartPayload, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return core.ChartPayload{}, fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		r = f
	}

	var payload core.ChartPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return core.ChartPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

func writeResult(w io.Writer, resp core.ChartResponse, output string) error {
	if output != "" {
		img, err := resp.DecodeImage()
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		if err := os.WriteFile(output, img, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		resp.Image = ""
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
