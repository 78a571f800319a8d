// cmd/api/tools.go
package main

import (
	"fmt"
	"log"

	"github.com/ruralcare/medreserve/internal/pkg/auth"
	"github.com/ruralcare/medreserve/internal/pkg/email"
	"github.com/ruralcare/medreserve/internal/pkg/logger"
	"github.com/spf13/cobra"
)

// hashPasswordCmd prints a bcrypt hash for hand-written fixtures and SQL
func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			hash, err := auth.NewPasswordManager(cfg).HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}

func emailTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "email-test <address>",
		Short: "Send a test email with the configured provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			emailService := email.NewEmailService(cfg, logger.New(cfg))
			testEmail := &email.Email{
				To:          []string{args[0]},
				Subject:     "Test email from " + cfg.App.Name,
				HTMLContent: "<h1>Success!</h1><p>Reservation emails can be delivered.</p>",
				Type:        "test",
			}
			if err := emailService.SendEmail(cmd.Context(), testEmail); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}

			log.Printf("✅ Test email sent to %s via %s", args[0], cfg.External.Email.Provider)
			return nil
		},
	}
}
