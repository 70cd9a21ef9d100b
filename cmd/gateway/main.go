package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opizontas/grpc-gateway/internal/config"
	"github.com/opizontas/grpc-gateway/internal/gateway"
	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/telemetry"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "gRPC gateway with reverse tunnels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.json", "path to the config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logging.Configure(&logging.Config{
		Level:      cfg.Server.LogLevel,
		File:       cfg.Server.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	})
	logger := logging.GetLogger()
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, "grpc-gateway")
	if err != nil {
		logger.Warn("Tracing disabled: %v", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("Trace exporter shutdown: %v", err)
			}
		}()
	}

	logger.Info("Starting gateway %s", version)
	return gateway.New(cfg, logger).Run(ctx)
}
