/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/code-hustle/apiserver/config"
	"github.com/code-hustle/apiserver/internal/server"
	"github.com/code-hustle/apiserver/pkg/logger"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the Code Hustle backend server",
	Long: `Starts the Code Hustle backend server. Usage:

	codehustle server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

		srv, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-stop
			log.Info().Msg("shutting down")
			_ = srv.Shutdown()
		}()

		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
