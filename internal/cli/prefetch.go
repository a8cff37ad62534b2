package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
)

type prefetchOptions struct {
	SourceURL    string
	Revision     string
	Name         string
	SignatureURL string
	WritePin     string
}

func newPrefetchCommand() *cobra.Command {
	opts := prefetchOptions{}
	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Fetch an unpinned archive and print or write a pin with its integrity hash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrefetch(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.SourceURL, "url", "", "Archive source URL")
	cmd.Flags().StringVar(&opts.Revision, "revision", "", "Revision recorded in the pin")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Optional pin name")
	cmd.Flags().StringVar(&opts.SignatureURL, "signature-url", "", "Detached OpenPGP signature URL")
	cmd.Flags().StringVar(&opts.WritePin, "write-pin", "", "Write the resulting pin to this path")
	_ = viper.BindPFlag("source_url", cmd.Flags().Lookup("url"))
	_ = viper.BindPFlag("revision", cmd.Flags().Lookup("revision"))
	_ = viper.BindPFlag("name", cmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("signature_url", cmd.Flags().Lookup("signature-url"))
	_ = viper.BindPFlag("write_pin", cmd.Flags().Lookup("write-pin"))
	return cmd
}

func runPrefetch(ctx context.Context, cmd *cobra.Command, opts prefetchOptions) error {
	service := newAppService(ctx)
	result, err := service.Prefetch(ctx, app.PrefetchRequest{
		SourceURL:    resolveString(cmd, opts.SourceURL, "source_url", "url"),
		Revision:     resolveString(cmd, opts.Revision, "revision", "revision"),
		Name:         resolveString(cmd, opts.Name, "name", "name"),
		SignatureURL: resolveString(cmd, opts.SignatureURL, "signature_url", "signature-url"),
		PinPath:      resolveString(cmd, opts.WritePin, "write_pin", "write-pin"),
		FetchOptions: fetchOptions(cmd),
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Pin.IntegrityHash)
	return nil
}
