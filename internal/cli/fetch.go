package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
)

type fetchCommandOptions struct {
	Pin string
}

func newFetchCommand() *cobra.Command {
	opts := fetchCommandOptions{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch, verify and extract a pinned archive into the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Pin, "pin", "", "Pin file path (.yaml, .json or .hcl)")
	_ = viper.BindPFlag("pin", cmd.Flags().Lookup("pin"))
	return cmd
}

func runFetch(ctx context.Context, cmd *cobra.Command, opts fetchCommandOptions) error {
	service := newAppService(ctx)
	result, err := service.Fetch(ctx, app.FetchRequest{
		PinPath:      resolveString(cmd, opts.Pin, "pin", "pin"),
		FetchOptions: fetchOptions(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Artifact.Path)
	return nil
}
