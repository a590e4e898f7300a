package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the SMTP password in the OS keychain",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the SMTP password (read from stdin) in the keychain",
	Args:  cobra.NoArgs,
	RunE:  runSecretSet,
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the SMTP password from the keychain",
	Args:  cobra.NoArgs,
	RunE:  runSecretDelete,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd)
}

// keyringAccount returns the configured account or one derived from the relay.
func keyringAccount() (string, error) {
	cfg, err := loadConfig(cfgPath, setupLogger(debug))
	if err != nil {
		return "", err
	}
	if cfg.Notification.SMTP.KeyringAccount != "" {
		return cfg.Notification.SMTP.KeyringAccount, nil
	}
	return secrets.DefaultAccount(cfg.Notification.SMTP), nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "SMTP password for %s: ", account)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	if err := secrets.SetSMTPPassword(account, strings.TrimRight(line, "\r\n")); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "stored in keychain as %s\n", account)
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	account, err := keyringAccount()
	if err != nil {
		return err
	}
	return secrets.DeleteSMTPPassword(account)
}
