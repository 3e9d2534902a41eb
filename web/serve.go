package web

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"juru.id/config"
)

// NewRouter wires the broker and the built browser client into one mux.
// Unknown paths fall back to index.html so client-side routes survive a
// hard refresh.
func NewRouter(broker *Broker, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/token", broker.HandleToken)
	r.Handle("/*", spaHandler(staticDir))
	return r
}

func spaHandler(staticDir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(staticDir))
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(staticDir, filepath.Clean(strings.TrimPrefix(r.URL.Path, "/")))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
	}
}

// Serve runs the broker. HTTPS is the default because browsers refuse
// microphone access on insecure origins.
func Serve(cfg config.Config, logger *log.Logger) error {
	broker := NewBroker(
		&http.Client{Timeout: 15 * time.Second},
		logger,
		cfg.OpenAIAPIKey,
		strings.TrimSuffix(cfg.RealtimeBaseURL, "/")+"/sessions",
		cfg.RealtimeModel,
		cfg.RealtimeVoice,
	)

	addr := fmt.Sprintf(":%d", cfg.Port)
	router := NewRouter(broker, cfg.StaticDir)

	if cfg.HTTPS {
		logger.Info("Serving", "url", fmt.Sprintf("https://localhost:%d", cfg.Port))
		return http.ListenAndServeTLS(addr, cfg.CertFile, cfg.KeyFile, router)
	}
	logger.Info("Serving", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	return http.ListenAndServe(addr, router)
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser client and mint session tokens",
	Long:  `Serves the built browser client over HTTPS and exposes the /token endpoint that mints short-lived realtime session credentials.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load(viper.GetViper())
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		if insecure, _ := cmd.Flags().GetBool("insecure"); insecure {
			cfg.HTTPS = false
		}
		logger := log.Default().WithPrefix("web")
		if err := Serve(cfg, logger); err != nil {
			logger.Fatal("Server failed", "error", err)
		}
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides config)")
	ServeCmd.Flags().Bool("insecure", false, "Serve plain HTTP instead of HTTPS")
}
