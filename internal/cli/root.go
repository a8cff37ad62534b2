package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinfetch/internal/app"
	"pinfetch/internal/metrics"
	"pinfetch/internal/shared"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	envPrefix         = "PINFETCH"
	defaultTimeoutSec = 300
)

type RootConfig struct {
	ConfigFile       string
	LogLevel         string
	CacheDir         string
	Keyring          string
	RequireIntegrity bool
	FetchTimeoutSec  int
	MetricsTextfile  string
}

type recorderKey struct{}

func Execute() {
	root, recorder := newRootCommand()
	err := root.Execute()
	if path := strings.TrimSpace(viper.GetString("metrics_textfile")); path != "" {
		if writeErr := recorder.WriteTextfile(path); writeErr != nil {
			log.Warn().Err(writeErr).Str("path", path).Msg("failed to write metrics")
		}
	}
	if err != nil {
		log.Error().Str("kind", string(shared.KindOf(err))).Msg(errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() (*cobra.Command, *metrics.Recorder) {
	cfg := RootConfig{}
	recorder := metrics.NewRecorder()
	cmd := &cobra.Command{
		Use:           "pinfetch",
		Short:         "Fetch pinned remote archives into a verified cache and compose import handles",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = log.Logger.WithContext(ctx)
			cmd.SetContext(context.WithValue(ctx, recorderKey{}, recorder))
			return nil
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.StringVar(&cfg.CacheDir, "cache-dir", "", "Archive cache directory (default: user cache dir/pinfetch)")
	flags.StringVar(&cfg.Keyring, "keyring", "", "OpenPGP public keyring used to verify signatureURL")
	flags.BoolVar(&cfg.RequireIntegrity, "require-integrity", false, "Reject pins without integrityHash")
	flags.IntVar(&cfg.FetchTimeoutSec, "fetch-timeout", defaultTimeoutSec, "Archive download timeout in seconds")
	flags.StringVar(&cfg.MetricsTextfile, "metrics-textfile", "", "Write fetch metrics in Prometheus textfile format")
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache-dir"))
	_ = viper.BindPFlag("keyring", flags.Lookup("keyring"))
	_ = viper.BindPFlag("require_integrity", flags.Lookup("require-integrity"))
	_ = viper.BindPFlag("fetch_timeout_sec", flags.Lookup("fetch-timeout"))
	_ = viper.BindPFlag("metrics_textfile", flags.Lookup("metrics-textfile"))

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newFetchCommand())
	cmd.AddCommand(newImportCommand())
	cmd.AddCommand(newPrefetchCommand())
	cmd.AddCommand(newCacheCommand())
	return cmd, recorder
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("pinfetch")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/pinfetch")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

// setupLogging writes to stderr; stdout carries command output such as
// import handles.
func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func newAppService(ctx context.Context) app.Service {
	service := app.NewService()
	if ctx != nil {
		if recorder, ok := ctx.Value(recorderKey{}).(*metrics.Recorder); ok {
			service.Metrics = recorder
		}
	}
	return service
}

// fetchOptions collects the persistent fetch settings from flags, env
// and config.
func fetchOptions(cmd *cobra.Command) app.FetchOptions {
	return app.FetchOptions{
		CacheDir:         resolveCacheDir(cmd),
		Keyring:          resolveString(cmd, flagString(cmd, "keyring"), "keyring", "keyring"),
		RequireIntegrity: resolveBool(cmd, flagBool(cmd, "require-integrity"), "require_integrity", "require-integrity"),
		TimeoutSec:       resolveInt(cmd, flagInt(cmd, "fetch-timeout"), "fetch_timeout_sec", "fetch-timeout"),
	}
}

func resolveCacheDir(cmd *cobra.Command) string {
	dir := resolveString(cmd, flagString(cmd, "cache-dir"), "cache_dir", "cache-dir")
	if strings.TrimSpace(dir) != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "pinfetch")
}

func exitCodeForError(err error) int {
	switch shared.KindOf(err) {
	case shared.KindParse, shared.KindValidation:
		return 2
	case shared.KindIntegrity:
		return 3
	case shared.KindFetch:
		return 4
	case shared.KindExtraction:
		return 5
	}
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeNotFound:
		return 2
	default:
		return 1
	}
}

func errorMessage(err error) string {
	return strings.TrimSpace(shared.Message(err))
}
