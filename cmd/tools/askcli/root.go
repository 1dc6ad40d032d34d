package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/digibook-bot/internal/config"
	"github.com/zhouzirui/digibook-bot/internal/render"
	"github.com/zhouzirui/digibook-bot/internal/service/ask"
)

var version = "dev"

var (
	endpointFlag string
	plainFlag    bool
	showSQLFlag  bool
	verboseFlag  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "askcli",
	Short:   "Terminal client for the DigiBook question-answering endpoint",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verboseFlag {
			log.SetOutput(io.Discard)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Ctrl-C abandons the in-flight answer stream.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&endpointFlag, "endpoint", "e", "", "answer endpoint base URL (default from ASK_ENDPOINT)")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "disable colours and borders")
	rootCmd.PersistentFlags().BoolVar(&showSQLFlag, "sql", false, "print the generated SQL below answers")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable diagnostic logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

// setup loads configuration and builds the shared client and renderer.
func setup() (*config.Config, *ask.Client, *render.Renderer, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if endpointFlag != "" {
		cfg.Ask.Endpoint = endpointFlag
	}

	client, err := ask.NewClient(ask.Options{
		Endpoint:    cfg.Ask.Endpoint,
		Timeout:     cfg.Ask.Timeout,
		StopOnFinal: cfg.Ask.StopOnFinal,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	styles := render.DefaultStyles()
	if plainFlag {
		styles = render.PlainStyles()
	}
	return cfg, client, render.NewRenderer(styles, showSQLFlag), nil
}
