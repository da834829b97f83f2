// Command redrust-go starts the in-memory key-value server: a RESP-wire
// command evaluator over a single-threaded epoll reactor. Flag parsing,
// process lifecycle, and logging live here, outside the core engine they
// configure.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armandparra/redrust-go/internal/config"
	"github.com/armandparra/redrust-go/internal/logging"
	"github.com/armandparra/redrust-go/internal/metrics"
	"github.com/armandparra/redrust-go/internal/reactor"
)

var version = "0.1.0" // set during build with -ldflags

var rootCmd = &cobra.Command{
	Use:     "redrust-go",
	Short:   "redrust-go is an in-memory key-value server",
	Long:    `redrust-go speaks a RESP-compatible wire protocol over a single-threaded, epoll-driven event loop, with lazy and active key expiry and on-demand AOF snapshotting.`,
	Version: version,
	RunE:    runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		fmt.Println(cfg.String())
		return nil
	},
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	log.Info(cfg.String())

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		go serveMetrics(log, m, cfg.MetricsAddr)
	}

	r := reactor.New(cfg, log, m)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("shutting down redrust-go")
		os.Exit(0)
	}()

	if err := r.Run(); err != nil {
		log.WithError(err).Error("reactor exited")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "host to bind to")
	rootCmd.PersistentFlags().Int("port", 7379, "port to listen on")
	rootCmd.PersistentFlags().Int("keys-limit", 5, "maximum live keys before eviction (0 = unbounded)")
	rootCmd.PersistentFlags().String("eviction-strategy", "simple-first", "key eviction policy")
	rootCmd.PersistentFlags().String("aof-file", "./redrust-master.aof", "path used by BGREWRITEAOF")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables it)")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("keys_limit", rootCmd.PersistentFlags().Lookup("keys-limit"))
	viper.BindPFlag("eviction_strategy", rootCmd.PersistentFlags().Lookup("eviction-strategy"))
	viper.BindPFlag("aof_file", rootCmd.PersistentFlags().Lookup("aof-file"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
