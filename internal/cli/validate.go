package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
)

type validateOptions struct {
	Pin string
}

func newValidateCommand() *cobra.Command {
	opts := validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a pin file without fetching",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Pin, "pin", "", "Pin file path (.yaml, .json or .hcl)")
	_ = viper.BindPFlag("pin", cmd.Flags().Lookup("pin"))
	return cmd
}

func runValidate(ctx context.Context, cmd *cobra.Command, opts validateOptions) error {
	service := newAppService(ctx)
	result, err := service.Validate(ctx, app.ValidateRequest{
		PinPath:          resolveString(cmd, opts.Pin, "pin", "pin"),
		RequireIntegrity: resolveBool(cmd, flagBool(cmd, "require-integrity"), "require_integrity", "require-integrity"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("validated: %s (cache key %s)\n", result.Pin.Label(), result.CacheKey)
	return nil
}
