package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/markb/plcgate/internal/secrets"
)

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Manage the secure parameter set",
	Long:  `Reads and writes the PLC connection parameters in AWS Systems Manager Parameter Store.`,
}

var paramSetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Write one secure parameter",
	Long:  fmt.Sprintf("Writes a parameter as an encrypted SecureString. Valid keys: %s, %s, %s.", secrets.KeyPLCAddress, secrets.KeyMQTTTopic, secrets.KeyGatewayID),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if !validParamKey(key) {
			return fmt.Errorf("unknown parameter key %q (valid: %s, %s, %s)",
				key, secrets.KeyPLCAddress, secrets.KeyMQTTTopic, secrets.KeyGatewayID)
		}

		value, err := promptSecret(fmt.Sprintf("Value for %s: ", key))
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("empty value")
		}

		provider, err := secrets.NewSSM(cmd.Context(), buildSSMConfig(cmd))
		if err != nil {
			return err
		}

		if err := provider.Put(cmd.Context(), key, value); err != nil {
			return err
		}
		fmt.Printf("Parameter %s updated\n", key)
		return nil
	},
}

var paramGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Fetch and display the parameter set",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, err := secrets.NewSSM(cmd.Context(), buildSSMConfig(cmd))
		if err != nil {
			return err
		}

		params, err := provider.Fetch(cmd.Context())
		if err != nil {
			return err
		}

		reveal, _ := cmd.Flags().GetBool("reveal")
		fmt.Printf("%-12s %s\n", secrets.KeyPLCAddress, mask(params.PLCAddress, reveal))
		fmt.Printf("%-12s %s\n", secrets.KeyMQTTTopic, mask(params.MQTTTopic, reveal))
		fmt.Printf("%-12s %s\n", secrets.KeyGatewayID, mask(params.GatewayID, reveal))
		return nil
	},
}

func validParamKey(key string) bool {
	switch key {
	case secrets.KeyPLCAddress, secrets.KeyMQTTTopic, secrets.KeyGatewayID:
		return true
	}
	return false
}

// promptSecret reads a value without echoing when stdin is a terminal, and
// falls back to a plain line read for piped input.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		value, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func mask(value string, reveal bool) string {
	if reveal {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + strings.Repeat("*", len(value)-4) + value[len(value)-2:]
}

func init() {
	rootCmd.AddCommand(paramCmd)
	paramCmd.AddCommand(paramSetCmd)
	paramCmd.AddCommand(paramGetCmd)
	paramGetCmd.Flags().Bool("reveal", false, "Print parameter values in full")
	paramCmd.PersistentFlags().String("ssm-namespace", "", "Parameter Store namespace (default /plc/secure)")
	paramCmd.PersistentFlags().String("ssm-endpoint", "", "Parameter Store endpoint override")
	paramCmd.PersistentFlags().String("aws-region", "", "AWS region")
}
