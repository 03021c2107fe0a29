package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/taskdeck/core/cmd/taskdeck/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "TaskDeck task dashboard",
		Long:  `TaskDeck is a small task-management system: a task API over durable local storage plus a command-line dashboard client.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewWhoamiCommand())
	rootCmd.AddCommand(commands.NewTaskCommand())
	rootCmd.AddCommand(commands.NewDashboardCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
