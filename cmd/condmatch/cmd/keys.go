package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/solatis/condmatch/internal/core/auth"
	"github.com/solatis/condmatch/internal/core/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API key signing secrets and keys",
}

var keysSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Print a new signing secret for CM_API_SECRET",
	Args:  cobra.NoArgs,
	RunE:  runKeysSecret,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an API key signed by a configured secret",
	Args:  cobra.NoArgs,
	RunE:  runKeysGenerate,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSecretCmd, keysGenerateCmd)
	keysGenerateCmd.Flags().String("secret-id", "", "secret to sign with (required when several are configured)")
}

// newSecret returns "<secret_id>:<base64 secret>" with a UUIDv7 id.
func newSecret() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", "") + ":" + base64.StdEncoding.EncodeToString(secret), nil
}

func runKeysSecret(cmd *cobra.Command, args []string) error {
	s, err := newSecret()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}

func runKeysGenerate(cmd *cobra.Command, args []string) error {
	secrets, err := config.APISecrets()
	if err != nil {
		return err
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no signing secret configured (set CM_API_SECRET; see 'condmatch keys secret')")
	}

	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		if len(secrets) > 1 {
			ids := make([]string, 0, len(secrets))
			for id := range secrets {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			return fmt.Errorf("several secrets configured, choose one with --secret-id: %s", strings.Join(ids, ", "))
		}
		for id := range secrets {
			secretID = id
		}
	}

	secret, ok := secrets[secretID]
	if !ok {
		return fmt.Errorf("secret %s not configured", secretID)
	}

	key, err := auth.GenerateAPIKey(secretID, secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}
