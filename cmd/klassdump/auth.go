package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"klassdump/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Klassroom credentials",
	Long: `Manage stored Klassroom credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only, for scripted runs)`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [phone]",
	Short: "Store Klassroom credentials securely",
	Long: `Store Klassroom credentials in the system keychain or encrypted file,
so 'klassdump dump' can run without arguments.`,
	Example: `  # Interactive login
  klassdump auth login

  # Login with the phone number given
  klassdump auth login +33600000000`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <phone>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var phone string
	if len(args) > 0 {
		phone = strings.TrimSpace(args[0])
	} else {
		reader := bufio.NewReader(os.Stdin)
		fmt.Fprint(os.Stderr, "Phone number: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read phone number: %w", err)
		}
		phone = strings.TrimSpace(line)
	}
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	account := &auth.Account{
		Phone:    phone,
		Password: password,
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for %s\n", phone)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	phone := strings.TrimSpace(args[0])
	if err := manager.Delete(phone); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	fmt.Printf("Credentials removed for %s\n", phone)
	return nil
}
