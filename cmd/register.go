package cmd

import (
	"fmt"
	"log"

	"github.com/saultyevil/slashbot/slashbot"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register slash commands with Discord and exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		bot, err := slashbot.New(cfg)
		if err != nil {
			log.Fatalf("error creating slashbot: %s", err.Error())
		}

		commands, err := bot.RegisterCommandsOnly()
		if err != nil {
			log.Fatalf("error registering slash commands: %s", err.Error())
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "registered %d commands:\n", len(commands))
		for _, c := range commands {
			fmt.Fprintf(out, "  /%s (%s)\n", c.Name, c.ID)
		}
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
