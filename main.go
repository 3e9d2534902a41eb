package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"juru.id/config"
	"juru.id/tui"
	"juru.id/web"
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(web.ServeCmd)
	rootCmd.AddCommand(tui.ConsoleCmd)

	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("broker-url", "", "Token broker base URL")
	rootCmd.PersistentFlags().String("model", "", "Realtime model")
	rootCmd.PersistentFlags().String("voice", "", "Model voice")

	viper.BindPFlag(
		"openai_api_key",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag(
		"broker_url",
		rootCmd.PersistentFlags().Lookup("broker-url"),
	)
	viper.BindPFlag(
		"realtime_model",
		rootCmd.PersistentFlags().Lookup("model"),
	)
	viper.BindPFlag(
		"realtime_voice",
		rootCmd.PersistentFlags().Lookup("voice"),
	)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	log.SetDefault(newLogger())
}

var rootCmd = &cobra.Command{
	Use:   "juru",
	Short: "Juru is a real-time speech translation console",
	Long:  `Juru streams your microphone to the realtime API and shows live transcripts of what you said and its translation, in the terminal or through the bundled browser client.`,
}

func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.InfoLevel)
	if os.Getenv("JURU_DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportCaller(true)
		logger.SetCallerFormatter(
			func(file string, line int, funcName string) string {
				path, err := filepath.Rel(".", file)
				if err != nil {
					path = file
				}
				return fmt.Sprintf("%s:%d", path, line)
			},
		)
	}

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))
	logger.SetStyles(styles)

	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
