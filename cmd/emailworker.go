/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/accountd/authserver/config"
	"github.com/accountd/authserver/internal/mailer"
	"github.com/accountd/authserver/internal/mq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// emailworkerCmd represents the emailworker command.
var emailworkerCmd = &cobra.Command{
	Use:   "emailworker",
	Short: "Consume queued mail jobs and deliver them over SMTP",
	Long: `Consumes mail jobs published by the API when EMAIL_BACKEND is a broker
(rabbitmq or pubsub) and delivers them through the configured SMTP relay. Usage:

	authserver emailworker
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "emailworker").Logger()

		if cfg.Email.Backend == config.EmailBackendSMTP {
			return fmt.Errorf("emailworker requires a broker EMAIL_BACKEND, got %q", cfg.Email.Backend)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.NewFromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
		defer func() {
			_ = broker.Close()
		}()

		smtp, err := mailer.NewSMTPMailer(cfg.SMTP, logger)
		if err != nil {
			return fmt.Errorf("init smtp mailer: %w", err)
		}

		worker := mailer.NewWorker(broker, cfg.Email.Queue, smtp, logger)
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(emailworkerCmd)
}
