package tui

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"juru.id/audio"
	"juru.id/config"
	"juru.id/realtime"
)

var ConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the live translation console in the terminal",
	Long:  `Connects to the realtime API, streams your microphone, and shows the source transcript and its translation side by side.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(viper.GetViper())
		logger := log.Default().WithPrefix("console")

		if record, _ := cmd.Flags().GetString("record"); record != "" {
			cfg.RecordPath = record
		}
		if transport, _ := cmd.Flags().GetString("transport"); transport != "" {
			cfg.Transport = transport
		}

		mode, err := resolveMode(cmd, cfg)
		if err != nil {
			return err
		}

		client := buildClient(cfg, mode, logger)
		program := tea.NewProgram(initialModel(client), tea.WithAltScreen())
		finalModel, err := program.Run()
		client.Stop()
		if err != nil {
			return err
		}

		if m, ok := finalModel.(model); ok {
			printSummary(m.client.Snapshot())
		}
		return nil
	},
}

func init() {
	ConsoleCmd.Flags().String("mode", "", "Conversation mode: interpreter or qa")
	ConsoleCmd.Flags().Bool("choose", false, "Pick the conversation mode interactively")
	ConsoleCmd.Flags().String("record", "", "Record the model voice to this OGG file")
	ConsoleCmd.Flags().String("transport", "", "Transport: webrtc or websocket")
}

func resolveMode(cmd *cobra.Command, cfg config.Config) (realtime.Mode, error) {
	choose, _ := cmd.Flags().GetBool("choose")
	if flag, _ := cmd.Flags().GetString("mode"); flag != "" && !choose {
		return realtime.ParseMode(flag), nil
	}
	if !choose && cfg.Mode != "" {
		return realtime.ParseMode(cfg.Mode), nil
	}

	var picked string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Conversation mode").
			Options(
				huh.NewOption("Interpreter (Indonesian → Traditional Chinese)", string(realtime.ModeInterpreter)),
				huh.NewOption("Q&A chatbot", string(realtime.ModeQA)),
			).
			Value(&picked),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("mode selection: %w", err)
	}
	return realtime.ParseMode(picked), nil
}

func buildClient(cfg config.Config, mode realtime.Mode, logger *log.Logger) *realtime.Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var dialer realtime.Dialer
	if cfg.Transport == "websocket" {
		dialer = &realtime.SocketDialer{Log: logger}
	} else {
		dialer = &realtime.PeerDialer{HTTP: httpClient, Log: logger}
	}

	return realtime.NewClient(realtime.Options{
		Log:    logger,
		Dialer: dialer,
		Credentials: func(ctx context.Context) (realtime.Credential, error) {
			return realtime.FetchCredential(ctx, httpClient, cfg.BrokerURL)
		},
		Dial: realtime.DialConfig{
			BaseURL:       cfg.RealtimeBaseURL,
			Model:         cfg.RealtimeModel,
			GatherTimeout: cfg.GatherTimeout,
			Capture: audio.CaptureOptions{
				FFmpegPath:  cfg.FFmpegPath,
				InputFormat: cfg.AudioInputFormat,
				InputDevice: cfg.AudioInputDevice,
				SampleRate:  audio.SampleRate,
				Channels:    audio.Channels,
			},
			FFplayPath: cfg.FFplayPath,
			RecordPath: cfg.RecordPath,
		},
		Mode:               mode,
		Voice:              cfg.RealtimeVoice,
		TranscriptionModel: cfg.TranscriptionModel,
		InputLanguage:      cfg.TranscriptionLanguage,
		TurnDetection:      cfg.TurnDetection,
		ReconnectGrace:     cfg.ReconnectGrace,
		SwitchTimeout:      cfg.SwitchTimeout,
	})
}

func printSummary(view realtime.View) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Mode", "You said", "Responses", "Last status"})
	table.Append([]string{
		modeLabel(view.Mode),
		strconv.Itoa(len(view.Source)),
		strconv.Itoa(len(view.Target)),
		string(view.Status),
	})
	table.Render()
}
