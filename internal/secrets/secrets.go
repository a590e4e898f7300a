package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/amishk599/jobsieve/internal/config"
)

const (
	// KeyringService groups jobsieve's secrets in the OS keychain.
	KeyringService = "jobsieve"

	smtpPasswordEnv = "JOBSIEVE_SMTP_PASSWORD"
)

// ErrNoPassword is returned when SMTP auth is configured but no password can
// be found anywhere.
var ErrNoPassword = errors.New("smtp password not found (set it in config, JOBSIEVE_SMTP_PASSWORD or the keychain)")

// SMTPPassword resolves the relay password. Lookup order: the config value,
// the JOBSIEVE_SMTP_PASSWORD variable, then the keychain entry named by
// keyring_account. A relay without a username needs no password.
func SMTPPassword(cfg config.SMTPConfig) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if pw := strings.TrimSpace(os.Getenv(smtpPasswordEnv)); pw != "" {
		return pw, nil
	}
	if account := strings.TrimSpace(cfg.KeyringAccount); account != "" {
		pw, err := keyring.Get(KeyringService, account)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("read keychain entry %q: %w", account, err)
		}
	}
	if cfg.Username == "" {
		return "", nil
	}
	return "", ErrNoPassword
}

// SetSMTPPassword stores password in the keychain under account.
func SetSMTPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

// DeleteSMTPPassword removes the keychain entry for account.
func DeleteSMTPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// DefaultAccount derives a keychain account name from the relay settings.
func DefaultAccount(cfg config.SMTPConfig) string {
	return fmt.Sprintf("jobsieve:smtp:%s@%s", cfg.Username, cfg.Host)
}
