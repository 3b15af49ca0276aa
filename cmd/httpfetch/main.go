package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpfetch/client"
	"github.com/adamwoolhether/httpfetch/internal/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "httpfetch:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "httpfetch",
		Short:         "Issue a single HTTP request and print the normalized response",
		Long:          "httpfetch sends one request through the dispatcher and prints the response envelope as JSON.\nSettings are read from --config, HTTPFETCH_* environment variables and flags.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a YAML, TOML or JSON config file")
	pf.String("base-url", "", "prefix for request URLs without a scheme")
	pf.String("auth", "", "default Authorization header value")
	pf.String("cache", "", "cache mode: default, no-store, reload, no-cache, force-cache, only-if-cached")
	pf.Duration("revalidate", 0, "request responses no older than this")
	pf.Duration("timeout", 30*time.Second, "overall request timeout")
	pf.String("user-agent", "httpfetch/"+version, "User-Agent header value")
	pf.String("query-policy", "", "query serialization: encode-all or drop-falsy")
	pf.BoolP("verbose", "v", false, "log request details to stderr")

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		root.AddCommand(newVerbCmd(method))
	}

	return root
}

func newVerbCmd(method string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " URL",
		Short: "Send a " + method + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, method, args[0])
		},
	}

	cmd.Flags().StringP("data", "d", "", "JSON request body")
	cmd.Flags().StringArrayP("query", "q", nil, "query parameter as key=value, repeatable")
	cmd.Flags().StringArrayP("header", "H", nil, "request header as key=value, repeatable")

	return cmd
}

func run(cmd *cobra.Command, method, rawURL string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	settings, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if settings.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	opts, err := settings.Options()
	if err != nil {
		return err
	}

	c, err := client.Build(append(opts, client.WithLogger(logger))...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	reqOpts, body, err := requestArgs(cmd)
	if err != nil {
		return err
	}

	env, err := c.Fetch(cmd.Context(), method, rawURL, body, reqOpts...)
	if err != nil {
		// Failed responses still print their envelope.
		if respErr, ok := client.AsResponseError(err); ok {
			if printErr := printEnvelope(cmd.OutOrStdout(), respErr.Envelope); printErr != nil {
				return printErr
			}
		}
		return err
	}

	return printEnvelope(cmd.OutOrStdout(), env)
}

func requestArgs(cmd *cobra.Command) ([]client.RequestOption, any, error) {
	var opts []client.RequestOption

	queries, _ := cmd.Flags().GetStringArray("query")
	if len(queries) > 0 {
		params := make(map[string]any, len(queries))
		for _, kv := range queries {
			k, v, err := splitPair(kv)
			if err != nil {
				return nil, nil, fmt.Errorf("parsing --query: %w", err)
			}
			params[k] = v
		}
		opts = append(opts, client.WithQuery(params))
	}

	headers, _ := cmd.Flags().GetStringArray("header")
	for _, kv := range headers {
		k, v, err := splitPair(kv)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing --header: %w", err)
		}
		opts = append(opts, client.WithHeader(k, v))
	}

	var body any
	if data, _ := cmd.Flags().GetString("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return nil, nil, errors.New("--data must be valid JSON")
		}
		body = json.RawMessage(data)
	}

	return opts, body, nil
}

func splitPair(kv string) (string, string, error) {
	k, v, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", kv)
	}

	return k, v, nil
}

func printEnvelope(w io.Writer, env *client.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
