// File: cmd/create.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/browser"
	"github.com/forgelabs-io/accountforge/internal/config"
	"github.com/forgelabs-io/accountforge/internal/network"
	"github.com/forgelabs-io/accountforge/internal/observability"
	"github.com/forgelabs-io/accountforge/internal/pipeline"
	"github.com/forgelabs-io/accountforge/internal/profiles"
	"github.com/forgelabs-io/accountforge/internal/signup"
	"github.com/forgelabs-io/accountforge/internal/sms"
	"github.com/forgelabs-io/accountforge/internal/store"
)

// newCreateCmd creates and configures the `create` command.
func newCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Runs the account-creation pipeline",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so flag values override the
			// config file and environment with the right precedence.
			if err := viper.BindPFlag("pipeline.concurrency", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("output.path", cmd.Flags().Lookup("output")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}
			count := viper.GetInt("count")
			if count <= 0 {
				return fmt.Errorf("count must be a positive integer")
			}

			logger.Info("Starting account creation batch",
				zap.Int("count", count),
				zap.Int("concurrency", cfg.Pipeline.Concurrency),
			)

			runner, cleanup, err := initializeRunner(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize pipeline: %w", err)
			}
			defer cleanup()

			results, err := runner.Run(ctx, count)
			if err != nil && len(results) == 0 {
				return err
			}

			if cfg.Output.Path != "" {
				if werr := writeResults(cfg.Output.Path, results); werr != nil {
					return werr
				}
				logger.Info("Results written", zap.String("path", cfg.Output.Path))
			}
			printSummary(results)
			return err
		},
	}

	createCmd.Flags().Int("count", 1, "Number of accounts to create")
	createCmd.Flags().Int("concurrency", 0, "Number of runs to execute in parallel (overrides config)")
	createCmd.Flags().StringP("output", "o", "", "Path to write the JSON result file")
	return createCmd
}

// initializeRunner wires the pipeline collaborators from configuration.
// The returned cleanup closes whatever was opened, in reverse order.
func initializeRunner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Runner, func(), error) {
	httpClient := network.NewClient(&network.ClientConfig{RequestTimeout: cfg.Profiles.RequestTimeout})
	profileClient := profiles.NewClient(httpClient, cfg.Profiles.BaseURL, cfg.Profiles.APIKey, logger)
	manager := profiles.NewManager(profileClient, cfg.Profiles, logger)
	if err := manager.HealthCheck(ctx); err != nil {
		return nil, nil, fmt.Errorf("profile service unreachable: %w", err)
	}

	smsClient := sms.NewClient(cfg.SMS, logger)
	pool := sms.NewReusePool(cfg.SMS.ReuseWindow)

	if balance, err := smsClient.Balance(ctx); err != nil {
		logger.Warn("Could not read provider balance", zap.Error(err))
	} else {
		logger.Info("Verification provider ready", zap.Float64("balance", balance))
	}

	opener := func(ctx context.Context, endpoint string) (pipeline.Session, error) {
		return browser.Open(ctx, endpoint, cfg.Browser, logger)
	}

	var (
		saver   pipeline.Saver
		cleanup = func() {}
	)
	if cfg.Database.URL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st, err := store.New(ctx, dbPool, logger)
		if err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		if err := st.InitSchema(ctx); err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		saver = st
		cleanup = dbPool.Close
	}

	p := pipeline.New(
		cfg.Pipeline,
		manager,
		opener,
		smsClient,
		signup.NewAccountSetup(cfg.Signup, cfg.Browser, logger),
		signup.NewTermsAcceptance(cfg.Browser, logger),
		signup.NewPhoneVerification(smsClient, pool, cfg.SMS, cfg.Browser, logger),
		signup.NewAccountVerification(cfg.Browser, logger),
		pipeline.NewLogSink(logger),
		logger,
	)
	return pipeline.NewRunner(p, cfg.Pipeline.Concurrency, saver, logger), cleanup, nil
}

// writeResults dumps the batch results as pretty-printed JSON.
func writeResults(path string, results []*pipeline.RunResult) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

func printSummary(results []*pipeline.RunResult) {
	var success, partial, failed int
	for _, r := range results {
		switch r.Outcome {
		case pipeline.OutcomeSuccess:
			success++
		case pipeline.OutcomePartial:
			partial++
		default:
			failed++
		}
	}
	fmt.Printf("\nBatch complete: %d succeeded, %d partial, %d failed (%d total)\n",
		success, partial, failed, len(results))
}

func init() {
	rootCmd.AddCommand(newCreateCmd())
}
