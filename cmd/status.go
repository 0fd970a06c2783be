// File: cmd/status.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/network"
	"github.com/forgelabs-io/accountforge/internal/observability"
	"github.com/forgelabs-io/accountforge/internal/profiles"
	"github.com/forgelabs-io/accountforge/internal/sms"
)

// newStatusCmd reports the health of the external services before a batch.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Checks the profile service and verification provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			httpClient := network.NewClient(&network.ClientConfig{RequestTimeout: cfg.Profiles.RequestTimeout})
			profileClient := profiles.NewClient(httpClient, cfg.Profiles.BaseURL, cfg.Profiles.APIKey, logger)
			if err := profileClient.CheckHealth(ctx); err != nil {
				fmt.Printf("profile service: UNREACHABLE (%v)\n", err)
			} else {
				fmt.Println("profile service: ok")
			}

			smsClient := sms.NewClient(cfg.SMS, logger)
			balance, err := smsClient.Balance(ctx)
			if err != nil {
				fmt.Printf("verification provider: UNREACHABLE (%v)\n", err)
				return nil
			}
			fmt.Printf("verification provider: ok (balance %.2f)\n", balance)

			prices, err := smsClient.Prices(ctx, "")
			if err != nil {
				return nil
			}
			for code, name := range cfg.SMS.Countries {
				if entry, ok := prices[code]; ok {
					fmt.Printf("  %-16s cost %.2f, %d in stock\n", name, entry.Cost, entry.Count)
				}
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newStatusCmd())
}
