package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/oauth"
	"github.com/markb/plcgate/internal/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored tokens",
	Long:  `Removes all stored tokens and prints the provider logout URL to also end the browser session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		oauthCfg, err := buildOAuthConfig(cmd)
		if err != nil {
			return err
		}

		store, err := openTokenStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		controller := session.New(oauth.NewClient(oauthCfg, store))
		logoutURL, err := controller.Logout()
		if err != nil {
			return err
		}

		fmt.Println("Logged out. To end the provider session, open:")
		fmt.Println()
		fmt.Println("  " + logoutURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().String("client-id", "", "OAuth2 client ID")
	logoutCmd.Flags().String("auth-domain", "", "Provider domain (e.g. https://auth.example.com)")
	logoutCmd.Flags().String("redirect-uri", "", "Redirect URI registered with the provider")
	logoutCmd.Flags().String("logout-uri", "", "Post-logout redirect URI")
	logoutCmd.Flags().String("token-db", "", "Path to the token store (default ~/.plcgate/tokens.db)")
}
