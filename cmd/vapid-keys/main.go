// Command vapid-keys generates the VAPID key pair used to sign web push
// notifications and prints the matching environment lines.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dirsoacha/resilience-api/internal/push"
)

const defaultSubject = "mailto:admin@dir-soacha.org"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		subject string
		envPath string
		write   bool
	)

	cmd := &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate VAPID keys for push notifications",
		Long: "Generates a P-256 VAPID key pair and prints the environment lines for it.\n" +
			"With --write the lines are saved to a new env file; an existing file is never overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !strings.HasPrefix(subject, "mailto:") && !strings.HasPrefix(subject, "https://") {
				return fmt.Errorf("subject must start with mailto: or https://, got %q", subject)
			}

			keys, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printKeys(out, keys, subject)

			if !write {
				return nil
			}
			created, err := writeEnvFile(envPath, keys, subject)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(out, "\nWrote %s with the new keys.\n", envPath)
			} else {
				fmt.Fprintf(out, "\n%s already exists; add the keys above to it by hand.\n", envPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", defaultSubject, "contact sent to push services (mailto: or https: URL)")
	cmd.Flags().StringVar(&envPath, "env-file", ".env", "env file to create with --write")
	cmd.Flags().BoolVar(&write, "write", false, "create the env file if it does not exist")
	return cmd
}

func printKeys(w io.Writer, keys push.KeyPair, subject string) {
	rule := strings.Repeat("-", 70)
	fmt.Fprintln(w, rule)
	fmt.Fprint(w, envLines(keys, subject))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Keep VAPID_PRIVATE_KEY secret. Rotating the keys forces every browser to subscribe again.")
}

func envLines(keys push.KeyPair, subject string) string {
	return fmt.Sprintf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\nVAPID_EMAIL=%s\n",
		keys.PublicKey, keys.PrivateKey, subject)
}

// writeEnvFile creates path with a starter configuration. It reports false
// without touching the file when path already exists.
func writeEnvFile(path string, keys push.KeyPair, subject string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	content := "# Ollama\n" +
		"OLLAMA_API_KEY=your_api_key_here\n" +
		"OLLAMA_HOST=https://ollama.com\n" +
		"OLLAMA_MODEL=gpt-oss:120b-cloud\n\n" +
		"# Push notifications\n" +
		envLines(keys, subject)
	if _, err := f.WriteString(content); err != nil {
		return false, fmt.Errorf("error writing %s: %w", path, err)
	}
	return true, nil
}
