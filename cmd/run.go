package cmd

import (
	"log"

	"github.com/saultyevil/slashbot/slashbot"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Starts the slashbot gateway connection, scheduler and (optionally) status API",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		bot, err := slashbot.New(cfg)
		if err != nil {
			log.Fatalf("error creating slashbot: %s", err.Error())
		}

		if err = bot.Run(ctx); err != nil {
			log.Fatalf("error running slashbot: %s", err.Error())
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
