package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"klassdump/pkg/archive"
	"klassdump/pkg/auth"
	"klassdump/pkg/config"
	"klassdump/pkg/logger"
)

var (
	// Dump command flags
	outputDir       string
	noIndex         bool
	downloadTimeout int
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump [phone] [password]",
	Short: "Export all classes, posts, and media for an account",
	Long: `Export the full visible history of a Klassroom account.

Credentials are resolved in order:
  - Positional arguments (password prompted when omitted)
  - Stored credentials (use 'klassdump auth login' to store)
  - Environment variables (KLASSDUMP_PHONE and KLASSDUMP_PASSWORD)

Output is one directory per class under the configured base directory, with
one file per attachment named <DD-MM-YYYY_HH-MM-SS>-<original-name>. Files
already on disk are skipped, so interrupted runs can simply be repeated.`,
	Example: `  # Export with explicit credentials
  klassdump dump +33600000000 secret

  # Prompt for the password
  klassdump dump +33600000000

  # Use stored credentials
  klassdump dump

  # Custom output directory, no index page
  klassdump dump --output /mnt/KlassLy --no-index`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(args)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for the export")
	dumpCmd.Flags().BoolVar(&noIndex, "no-index", false, "do not generate the HTML index page")
	dumpCmd.Flags().IntVar(&downloadTimeout, "download-timeout", 30, "HTTP timeout in seconds")

	// Two bare positional arguments on the root command still run an export,
	// matching the original invocation style.
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			return runDump(args)
		}
		return cmd.Help()
	}
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}

func runDump(args []string) error {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if noIndex {
		flags["write-index"] = false
	}
	if downloadTimeout != 30 {
		flags["download-timeout"] = time.Duration(downloadTimeout) * time.Second
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(logger.Options{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("klassdump starting")

	phone, password, err := resolveCredentials(args)
	if err != nil {
		return err
	}

	archiver, err := archive.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize archiver: %w", err)
	}

	if err := archiver.Run(phone, password); err != nil {
		log.WithError(err).Error("export failed")
		return err
	}

	return nil
}

// resolveCredentials resolves phone and password from positional arguments,
// the credential store, or the environment, prompting for a missing password.
func resolveCredentials(args []string) (string, string, error) {
	switch len(args) {
	case 2:
		return strings.TrimSpace(args[0]), args[1], nil
	case 1:
		phone := strings.TrimSpace(args[0])

		// A stored account for this phone beats prompting
		if manager, err := auth.NewManager(); err == nil {
			if account, err := manager.Retrieve(phone); err == nil {
				return account.Phone, account.Password, nil
			}
		}

		password, err := promptPassword(fmt.Sprintf("Password for %s: ", phone))
		if err != nil {
			return "", "", err
		}
		return phone, password, nil
	default:
		manager, err := auth.NewManager()
		if err != nil {
			return "", "", fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		account, err := manager.RetrieveDefault()
		if err != nil {
			return "", "", fmt.Errorf("no credentials: pass phone and password, run 'klassdump auth login', or set KLASSDUMP_PHONE and KLASSDUMP_PASSWORD")
		}
		return account.Phone, account.Password, nil
	}
}

// promptPassword reads a password from the terminal without echoing it
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
