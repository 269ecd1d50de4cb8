// Command duplclient sends the JSON requests it reads from stdin, one per
// line, to a duplicate detection service and prints the replies.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/multisocket/duplclient"
	"github.com/multisocket/duplclient/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	_ "github.com/multisocket/duplclient/transport/all"
)

const (
	prettyPrintKey = "pretty_print"
	timeoutKey     = "timeout"
	logLevelKey    = "log_level"
	metricsAddrKey = "metrics_addr"
	optionKey      = "option"

	defaultRequestTimeout = 3000 * time.Millisecond
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplclient [--pretty-print] <address>",
		Short: "Send JSON requests read from stdin to a duplicate detection service",
		Long: "Reads one JSON request per line from stdin and prints one reply per line,\n" +
			"or \"timed out\" when the service did not answer in time.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(viper.GetString(logLevelKey))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runClient(ctx, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.Duration("timeout", defaultRequestTimeout, "request timeout, negative waits forever")
	flags.String("log-level", "warning", "log level (trace|debug|info|warning|error)")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")
	flags.StringArray("option", nil, "socket or transport option as name=value (e.g. Socket.ReconnectInterval=50ms)")
	cmd.Flags().Bool("pretty-print", false, "indent the replies")

	mustBindFlag(timeoutKey, "DUPLCLIENT_TIMEOUT", flags.Lookup("timeout"))
	mustBindFlag(logLevelKey, "DUPLCLIENT_LOG_LEVEL", flags.Lookup("log-level"))
	mustBindFlag(metricsAddrKey, "DUPLCLIENT_METRICS_ADDR", flags.Lookup("metrics-addr"))
	mustBindFlag(optionKey, "", flags.Lookup("option"))
	mustBindFlag(prettyPrintKey, "DUPLCLIENT_PRETTY_PRINT", cmd.Flags().Lookup("pretty-print"))

	cmd.AddCommand(newRespondCommand())
	return cmd
}

func mustBindFlag(key, env string, flag *pflag.Flag) {
	if flag == nil {
		panic(fmt.Sprintf("flag for key %s not found", key))
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
	if env != "" {
		if err := viper.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

// optionValues parses name=value pairs into option values.
func optionValues(pairs []string) (options.OptionValues, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ovs := make(options.OptionValues, len(pairs))
	for _, pair := range pairs {
		opt, val, err := options.ParseOptionValue(pair)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", pair, err)
		}
		ovs[opt] = val
	}
	return ovs, nil
}

func serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	if err := duplclient.RegisterMetrics(reg); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithField("domain", "metrics").WithError(err).Error("serve")
		}
	}()
	return nil
}

func runClient(ctx context.Context, addr string, in io.Reader, out io.Writer) error {
	ovs, err := optionValues(viper.GetStringSlice(optionKey))
	if err != nil {
		return err
	}
	if metricsAddr := viper.GetString(metricsAddrKey); metricsAddr != "" {
		if err = serveMetrics(metricsAddr); err != nil {
			return err
		}
	}

	c := duplclient.New()
	defer c.Close()
	if err = c.InitOptions([]byte(addr), viper.GetDuration(timeoutKey), ovs); err != nil {
		return fmt.Errorf("init failed: %w", err)
	}
	return requestLines(ctx, c, in, out, viper.GetBool(prettyPrintKey))
}

// requestLines sends every line of in as a request and writes each reply,
// or "timed out", as a line to out.
func requestLines(ctx context.Context, c *duplclient.Client, in io.Reader, out io.Writer, pretty bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		reply, err := c.Request(scanner.Bytes(), pretty)
		switch {
		case err == nil:
			_, err = fmt.Fprintln(out, reply)
		case errors.Is(err, duplclient.ErrTimedOut):
			_, err = fmt.Fprintln(out, "timed out")
		default:
			return fmt.Errorf("request failed: %w", err)
		}
		if err != nil {
			return err
		}
	}
	return scanner.Err()
}
