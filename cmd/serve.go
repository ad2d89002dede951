package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"badgereq/config"
	"badgereq/web"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	servePort int
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the badge request form and the send API",
	Long: `Start the HTTP server with the badge request form, the JSON session API,
the /api/send relay, /metrics and /healthz.

Each browser session keeps its own entry list in memory. Accepted entries are saved
through the configured database driver; finished batches are mailed through Resend.`,
	Example: `
  # Start on the configured port
  badgereq serve

  # Start on a custom port and open the browser
  badgereq serve --port 9090 --open
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closer, err := openRequestStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closer.Close()

		mailer, err := newMailClient(cfg.Mail)
		if err != nil {
			return err
		}

		handler := web.NewServer(web.Options{
			Persister:      store,
			Notifier:       mailer,
			TestSender:     mailer,
			Companies:      cfg.CompanyList(),
			RequestTimeout: cfg.Server.RequestTimeout,
			SessionTTL:     cfg.Server.SessionTTL,
			SendRateLimit:  cfg.Server.SendRateLimit,
			Logger:         logger,
		})

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		listenURL := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		logger.Info("listening",
			slog.String("url", listenURL),
			slog.String("database", cfg.Database.Driver),
			slog.Int("companies", len(cfg.Companies)),
		)
		if serveOpen {
			if openErr := openURLInBrowser(listenURL); openErr != nil {
				logger.Warn("failed to open browser", slog.Any("error", openErr))
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			return handler.RunSessionSweeper(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}
			logger.Info("server stopped")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 3000, "HTTP port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the form in the default browser")
}

func openURLInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", rawURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	return cmd.Start()
}
