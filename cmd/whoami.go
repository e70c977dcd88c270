package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/oauth"
	"github.com/markb/plcgate/internal/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Long:  `Resolves the current session against the provider. A rejected access token is refreshed silently once before giving up.`,
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

		client := oauth.NewClient(oauthCfg, store)
		controller := session.New(client)

		if err := controller.CheckAuth(cmd.Context()); err != nil {
			return err
		}

		if controller.State() != session.StateAuthenticated {
			return fmt.Errorf("not logged in. Run 'plcgate login'")
		}

		user := controller.User()
		fmt.Printf("User:     %s\n", user.Username)
		fmt.Printf("Email:    %s\n", user.Email)
		fmt.Printf("Subject:  %s\n", user.Sub)

		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			fmt.Println("\nFlow steps:")
			for _, step := range client.Trail().Steps() {
				fmt.Printf("  %s  %s\n", step.Timestamp.Format("15:04:05"), step.Step)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolP("verbose", "v", false, "Print the flow debug trail")
	whoamiCmd.Flags().String("client-id", "", "OAuth2 client ID")
	whoamiCmd.Flags().String("auth-domain", "", "Provider domain (e.g. https://auth.example.com)")
	whoamiCmd.Flags().String("redirect-uri", "", "Redirect URI registered with the provider")
	whoamiCmd.Flags().String("logout-uri", "", "Post-logout redirect URI")
	whoamiCmd.Flags().String("token-db", "", "Path to the token store (default ~/.plcgate/tokens.db)")
}
