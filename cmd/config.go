package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/audit"
	"github.com/markb/plcgate/internal/oauth"
	"github.com/markb/plcgate/internal/secrets"
	"github.com/markb/plcgate/internal/tokenstore"
)

// buildOAuthConfig creates the provider configuration from environment
// variables and CLI flags. Priority: CLI flags > environment variables.
func buildOAuthConfig(cmd *cobra.Command) (oauth.Config, error) {
	cfg := oauth.Config{
		ClientID:    os.Getenv("PLCGATE_CLIENT_ID"),
		Domain:      os.Getenv("PLCGATE_AUTH_DOMAIN"),
		RedirectURI: os.Getenv("PLCGATE_REDIRECT_URI"),
		LogoutURI:   os.Getenv("PLCGATE_LOGOUT_URI"),
	}

	if clientID, _ := cmd.Flags().GetString("client-id"); clientID != "" {
		cfg.ClientID = clientID
	}
	if domain, _ := cmd.Flags().GetString("auth-domain"); domain != "" {
		cfg.Domain = domain
	}
	if redirectURI, _ := cmd.Flags().GetString("redirect-uri"); redirectURI != "" {
		cfg.RedirectURI = redirectURI
	}
	if logoutURI, _ := cmd.Flags().GetString("logout-uri"); logoutURI != "" {
		cfg.LogoutURI = logoutURI
	}

	if cfg.ClientID == "" {
		return cfg, fmt.Errorf("client ID required: set PLCGATE_CLIENT_ID or --client-id")
	}
	if cfg.Domain == "" {
		return cfg, fmt.Errorf("auth domain required: set PLCGATE_AUTH_DOMAIN or --auth-domain")
	}
	if cfg.LogoutURI == "" {
		cfg.LogoutURI = cfg.RedirectURI
	}

	return cfg, nil
}

// openTokenStore opens the persistent token store. Tokens live under
// ~/.plcgate by default so they survive across invocations.
func openTokenStore(cmd *cobra.Command) (*tokenstore.SQLite, error) {
	path := os.Getenv("PLCGATE_TOKEN_DB")
	if flagPath, _ := cmd.Flags().GetString("token-db"); flagPath != "" {
		path = flagPath
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir := filepath.Join(home, ".plcgate")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dir, err)
		}
		path = filepath.Join(dir, "tokens.db")
	}

	store, err := tokenstore.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	// Drop any stale verifier left over from an abandoned login
	_ = store.CleanupExpired()
	return store, nil
}

// buildSSMConfig creates the Parameter Store configuration from environment
// variables and CLI flags.
func buildSSMConfig(cmd *cobra.Command) secrets.SSMConfig {
	cfg := secrets.SSMConfig{
		Namespace:       os.Getenv("PLCGATE_SSM_NAMESPACE"),
		Region:          os.Getenv("PLCGATE_AWS_REGION"),
		Endpoint:        os.Getenv("PLCGATE_SSM_ENDPOINT"),
		AccessKeyID:     os.Getenv("PLCGATE_AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("PLCGATE_AWS_SECRET_ACCESS_KEY"),
	}

	if namespace, _ := cmd.Flags().GetString("ssm-namespace"); namespace != "" {
		cfg.Namespace = namespace
	}
	if region, _ := cmd.Flags().GetString("aws-region"); region != "" {
		cfg.Region = region
	}
	if endpoint, _ := cmd.Flags().GetString("ssm-endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	}

	return cfg
}

// buildAuditConfig creates the audit sink configuration from environment
// variables and CLI flags.
func buildAuditConfig(cmd *cobra.Command) audit.Config {
	cfg := audit.Config{
		Backend:         os.Getenv("PLCGATE_AUDIT_BACKEND"),
		LogGroup:        os.Getenv("PLCGATE_AUDIT_LOG_GROUP"),
		Bucket:          os.Getenv("PLCGATE_AUDIT_BUCKET"),
		Region:          os.Getenv("PLCGATE_AWS_REGION"),
		Endpoint:        os.Getenv("PLCGATE_AUDIT_ENDPOINT"),
		AccessKeyID:     os.Getenv("PLCGATE_AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("PLCGATE_AWS_SECRET_ACCESS_KEY"),
	}

	if backend, _ := cmd.Flags().GetString("audit-backend"); backend != "" {
		cfg.Backend = backend
	}
	if logGroup, _ := cmd.Flags().GetString("audit-log-group"); logGroup != "" {
		cfg.LogGroup = logGroup
	}
	if bucket, _ := cmd.Flags().GetString("audit-bucket"); bucket != "" {
		cfg.Bucket = bucket
	}

	return cfg
}
