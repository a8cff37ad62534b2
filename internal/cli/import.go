package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
)

type importOptions struct {
	Pin     string
	Compose string
	Output  string
}

func newImportCommand() *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Fetch a pinned archive and emit an import handle for the evaluator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Pin, "pin", "", "Pin file path (.yaml, .json or .hcl)")
	cmd.Flags().StringVar(&opts.Compose, "compose", "", "YAML file with config and overlays")
	cmd.Flags().StringVar(&opts.Output, "output", "-", "Handle output path (.yaml or .json), - for stdout")
	_ = viper.BindPFlag("pin", cmd.Flags().Lookup("pin"))
	_ = viper.BindPFlag("compose", cmd.Flags().Lookup("compose"))
	_ = viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, opts importOptions) error {
	service := newAppService(ctx)
	result, err := service.Import(ctx, app.ImportRequest{
		PinPath:      resolveString(cmd, opts.Pin, "pin", "pin"),
		ComposePath:  resolveString(cmd, opts.Compose, "compose", "compose"),
		OutputPath:   resolveString(cmd, opts.Output, "output", "output"),
		FetchOptions: fetchOptions(cmd),
	})
	if err != nil {
		return err
	}
	if result.OutputPath != "-" {
		fmt.Printf("wrote import handle: %s\n", result.OutputPath)
	}
	return nil
}
