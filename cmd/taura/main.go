package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TAURAAI/taura-recall/internal/profile"
	"github.com/TAURAAI/taura-recall/server"
	"github.com/TAURAAI/taura-recall/store"
	"github.com/TAURAAI/taura-recall/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "taura-recall",
	Short: "Personal semantic-recall gateway",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := profileFromViper()
		if err := p.Validate(); err != nil {
			return err
		}

		setupLogger(p)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		driver, err := db.NewDBDriver(p)
		if err != nil {
			return fmt.Errorf("failed to create database driver: %w", err)
		}
		st := store.New(driver)
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		srv := server.NewServer(p, st)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		case err := <-errCh:
			if err != nil {
				slog.Error("server stopped unexpectedly", "error", err)
			}
		}

		srv.Shutdown()
		return nil
	},
}

func profileFromViper() *profile.Profile {
	return &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		DSN:     viper.GetString("dsn"),
		Driver:  viper.GetString("driver"),
		Version: version,

		EmbedderBaseURL: viper.GetString("embedder.url"),
		EmbedderTimeout: viper.GetDuration("embedder.timeout"),
		EmbeddingDim:    viper.GetInt("embedder.dim"),
		EmbeddingModel:  viper.GetString("embedder.model"),

		EmbedMaxRetries:     viper.GetInt("embedder.max_retries"),
		EmbedBackoffBase:    viper.GetDuration("embedder.backoff_base"),
		EmbedSplitThreshold: viper.GetInt("embedder.split_threshold"),

		QueueCapacity:      viper.GetInt("queue.capacity"),
		QueueBatchSize:     viper.GetInt("queue.batch_size"),
		QueueFlushInterval: viper.GetDuration("queue.flush_interval"),
		QueueOfferTimeout:  viper.GetDuration("queue.offer_timeout"),
		QueueMaxAttempts:   viper.GetInt("queue.max_attempts"),
		QueueRetryDelay:    viper.GetDuration("queue.retry_delay"),

		MonitorInterval: viper.GetDuration("monitor.interval"),

		RateLimitRPS:   viper.GetFloat64("ratelimit.rps"),
		RateLimitBurst: viper.GetInt("ratelimit.burst"),
	}
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func init() {
	// Optional local .env for development.
	_ = godotenv.Load()

	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8085)
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("embedder.url", "http://localhost:8091")
	viper.SetDefault("embedder.dim", 768)
	viper.SetDefault("embedder.model", "siglip-base")

	viper.SetEnvPrefix("taura")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, can be "dev" or "prod"`)
	flags.String("addr", "", "address of the server")
	flags.Int("port", 8085, "port of the server")
	flags.String("dsn", "", "database source name")
	flags.String("driver", "postgres", "database driver")

	for _, key := range []string{"mode", "addr", "port", "dsn", "driver"} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
