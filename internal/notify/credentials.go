package notify

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService namespaces the SMTP app password in the OS keychain.
const KeyringService = "payminder-smtp"

// ResolvePassword prefers an explicit password and otherwise looks up the
// sender's entry in the OS keychain. A missing entry yields "".
func ResolvePassword(sender, explicit string) (string, error) {
	if explicit != "" || sender == "" {
		return explicit, nil
	}
	pw, err := keyring.Get(KeyringService, sender)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return pw, nil
}

// StorePassword saves the sender's app password in the OS keychain.
func StorePassword(sender, password string) error {
	if sender == "" || password == "" {
		return errors.New("sender and password are required")
	}
	if err := keyring.Set(KeyringService, sender, password); err != nil {
		return fmt.Errorf("write keychain: %w", err)
	}
	return nil
}

// ForgetPassword removes the sender's entry. Removing a missing entry is
// not an error.
func ForgetPassword(sender string) error {
	err := keyring.Delete(KeyringService, sender)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete keychain entry: %w", err)
	}
	return nil
}
