package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/audit"
	"github.com/markb/plcgate/internal/gateway"
	"github.com/markb/plcgate/internal/log"
	"github.com/markb/plcgate/internal/observability"
	"github.com/markb/plcgate/internal/plc"
	"github.com/markb/plcgate/internal/secrets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PLC command gateway",
	Long:  `Starts the HTTP server that accepts authorized PLC commands, fetches device secrets per invocation, and records an audit event per command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		provider, err := buildSecretsProvider(cmd)
		if err != nil {
			return err
		}

		sink, err := audit.NewSink(ctx, buildAuditConfig(cmd))
		if err != nil {
			return fmt.Errorf("failed to initialize audit sink: %w", err)
		}

		tel, cleanup, err := observability.Init(ctx, buildTelemetryConfig(cmd))
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer cleanup()

		origins, _ := cmd.Flags().GetStringSlice("allowed-origins")
		srv := gateway.New(gateway.Config{
			AllowedOrigins: origins,
		}, provider, plc.NewStubExecutor(), sink, observability.HTTPMiddleware(tel))

		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf("%s:%d", host, port)

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			domain, _ := cmd.Flags().GetString("https-domain")
			if domain != "" {
				certDir, _ := cmd.Flags().GetString("cert-dir")
				httpAddr, _ := cmd.Flags().GetString("http-addr")
				errCh <- srv.ListenAndServeTLS(gateway.HTTPSConfig{
					Domain:   domain,
					CertDir:  certDir,
					HTTPAddr: httpAddr,
					Addr:     addr,
				})
				return
			}
			log.Info("gateway listening", "addr", addr)
			errCh <- srv.ListenAndServe(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case <-sigCtx.Done():
			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
		}
		return nil
	},
}

// buildSecretsProvider selects the secret source. "ssm" is the default;
// "static" reads the parameter set from the environment for local development.
func buildSecretsProvider(cmd *cobra.Command) (secrets.Provider, error) {
	source := os.Getenv("PLCGATE_SECRETS_SOURCE")
	if flagSource, _ := cmd.Flags().GetString("secrets-source"); flagSource != "" {
		source = flagSource
	}

	switch source {
	case "static":
		return &secrets.Static{Params: secrets.Params{
			PLCAddress: os.Getenv("PLCGATE_PLC_ADDRESS"),
			MQTTTopic:  os.Getenv("PLCGATE_MQTT_TOPIC"),
			GatewayID:  os.Getenv("PLCGATE_GATEWAY_ID"),
		}}, nil
	case "ssm", "":
		return secrets.NewSSM(cmd.Context(), buildSSMConfig(cmd))
	default:
		return nil, fmt.Errorf("unknown secrets source %q", source)
	}
}

func buildTelemetryConfig(cmd *cobra.Command) *observability.Config {
	cfg := observability.NewConfig()
	if exporter := os.Getenv("PLCGATE_OTEL_EXPORTER"); exporter != "" {
		cfg.Exporter = exporter
	}
	if endpoint := os.Getenv("PLCGATE_OTEL_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if exporter, _ := cmd.Flags().GetString("otel-exporter"); exporter != "" {
		cfg.Exporter = exporter
	}
	if endpoint, _ := cmd.Flags().GetString("otel-endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().StringSlice("allowed-origins", nil, "CORS allowed origins (default: all)")
	serveCmd.Flags().String("secrets-source", "", "Secret source: ssm or static")
	serveCmd.Flags().String("ssm-namespace", "", "Parameter Store namespace (default /plc/secure)")
	serveCmd.Flags().String("ssm-endpoint", "", "Parameter Store endpoint override")
	serveCmd.Flags().String("aws-region", "", "AWS region")
	serveCmd.Flags().String("audit-backend", "", "Audit backend: cloudwatch, s3, or log")
	serveCmd.Flags().String("audit-log-group", "", "CloudWatch Logs group for audit events")
	serveCmd.Flags().String("audit-bucket", "", "S3 bucket for audit events")
	serveCmd.Flags().String("otel-exporter", "", "Metrics exporter: none, stdout, or otlp")
	serveCmd.Flags().String("otel-endpoint", "", "OTLP collector endpoint")
	serveCmd.Flags().String("https-domain", "", "Enable HTTPS with Let's Encrypt for this domain")
	serveCmd.Flags().String("cert-dir", "./certs", "Directory to cache TLS certificates")
	serveCmd.Flags().String("http-addr", ":80", "HTTP address for ACME challenges and redirects")
}
