package cmd

import (
	"fmt"
	"log"
	"syscall"

	"github.com/saultyevil/slashbot/slashbot"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// passwordReader is a function type for reading passwords. It's really only
// here to make testing easier.
type passwordReader func() ([]byte, error)

var customPasswordReader passwordReader

var hashpwCmd = &cobra.Command{
	Use:   "hashpw",
	Short: "Hash an admin password for the status API",
	Long: "Prompts for a password and prints its argon2id hash, " +
		"suitable for the api.admin_password_hash config value.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()

		if customPasswordReader == nil {
			customPasswordReader = func() ([]byte, error) {
				return term.ReadPassword(int(syscall.Stdin))
			}
		}

		var password string
		for {
			fmt.Fprint(out, "Enter admin password: ")
			passwordBytes, _ := customPasswordReader()
			password = string(passwordBytes)
			fmt.Fprintln(out)

			fmt.Fprint(out, "Confirm admin password: ")
			confirmPasswordBytes, _ := customPasswordReader()
			confirmPassword := string(confirmPasswordBytes)
			fmt.Fprintln(out)

			if password == confirmPassword {
				break
			}
			fmt.Fprintln(out, "Passwords do not match. Please try again.")
		}

		hashedPassword, err := slashbot.HashPassword(password)
		if err != nil {
			log.Fatalf("Error hashing password: %v", err)
		}

		fmt.Fprintln(out, hashedPassword)
	},
}

func init() {
	rootCmd.AddCommand(hashpwCmd)
}
