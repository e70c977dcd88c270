package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/markb/plcgate/internal/oauth"
	"github.com/markb/plcgate/internal/plc"
	"github.com/markb/plcgate/internal/session"
)

var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a command to the PLC gateway",
	Long:  `Submits a command to the gateway with the stored bearer token. The session is resolved first, refreshing the access token if needed.`,
	Args:  cobra.ExactArgs(1),
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

		// Resolve the session first so a stale access token gets its one
		// silent refresh before the gateway sees it.
		controller := session.New(client)
		if err := controller.CheckAuth(cmd.Context()); err != nil {
			return err
		}
		if controller.State() != session.StateAuthenticated {
			return fmt.Errorf("not logged in. Run 'plcgate login'")
		}

		accessToken, err := client.AccessToken()
		if err != nil {
			return err
		}

		area, _ := cmd.Flags().GetString("area")
		address, _ := cmd.Flags().GetString("address")
		value, _ := cmd.Flags().GetString("value")
		command := plc.Command{
			Command: args[0],
			Area:    area,
			Address: address,
			Value:   value,
		}

		gatewayURL := os.Getenv("PLCGATE_GATEWAY_URL")
		if flagURL, _ := cmd.Flags().GetString("gateway"); flagURL != "" {
			gatewayURL = flagURL
		}
		if gatewayURL == "" {
			gatewayURL = "http://localhost:8080"
		}

		body, err := json.Marshal(command)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, gatewayURL+"/command", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, respBody)
		}

		var outcome plc.Outcome
		if err := json.Unmarshal(respBody, &outcome); err != nil {
			return fmt.Errorf("unexpected gateway response: %s", respBody)
		}

		fmt.Printf("Status:  %s\n", outcome.Status)
		fmt.Printf("Result:  %s\n", outcome.Result.Value)
		fmt.Printf("Message: %s\n", outcome.Result.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().String("gateway", "", "Gateway base URL (default http://localhost:8080)")
	sendCmd.Flags().String("area", "", "Memory area (e.g. DB1)")
	sendCmd.Flags().String("address", "", "Address within the area")
	sendCmd.Flags().String("value", "", "Value to write")
	sendCmd.Flags().String("client-id", "", "OAuth2 client ID")
	sendCmd.Flags().String("auth-domain", "", "Provider domain (e.g. https://auth.example.com)")
	sendCmd.Flags().String("redirect-uri", "", "Redirect URI registered with the provider")
	sendCmd.Flags().String("logout-uri", "", "Post-logout redirect URI")
	sendCmd.Flags().String("token-db", "", "Path to the token store (default ~/.plcgate/tokens.db)")
}
