package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gertlabs/gert/config"
)

var version = "dev"

var (
	// Flags
	configFile     string
	conversationID string
	showThinking   bool

	v = config.New()

	// Root command opens the chat UI
	rootCmd = &cobra.Command{
		Use:           "gert",
		Short:         "Voice-style assistant with tools and a panel of consulted models",
		Long:          "gert answers through a local model that can search, read files, recall past conversations and consult other models for a consensus.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runChat,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.gert/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("model", "", "primary Ollama model")
	rootCmd.PersistentFlags().String("timeout-policy", "", "what a tool timeout does to a turn (abort, fold)")

	rootCmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "resume a conversation by id")
	rootCmd.Flags().BoolVar(&showThinking, "thinking", false, "show model thinking traces")

	// Bind flags to viper keys
	v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("ollama.model", rootCmd.PersistentFlags().Lookup("model"))
	v.BindPFlag("turn.timeout_policy", rootCmd.PersistentFlags().Lookup("timeout-policy"))

	rootCmd.AddCommand(
		newAskCmd(),
		newToolsCmd(),
		newServeCmd(),
		newConversationsCmd(),
		newConsensusCmd(),
	)
}

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// settingsViper exposes the bound instance to the app builder
func settingsViper() *viper.Viper {
	return v
}
