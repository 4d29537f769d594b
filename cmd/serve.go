package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/classreport-cli/internal/server"
	"github.com/KaramelBytes/classreport-cli/internal/session"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

var (
	srvAddr       string
	srvProvider   string
	srvModel      string
	srvOllamaHost string
	srvOrigins    []string
	srvPolicy     string
	srvThreshold  float64
)

var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Serve the correction API for one session (optionally preloaded with files)",
	Long: `Starts a local HTTP API holding one analysis session in memory. Upload files
with POST /api/sources, edit the matrix with GET/PUT /api/matrix and download
reports from /api/report.xlsx and /api/report.md. Metrics are on /metrics.

Nothing is persisted: stopping the server discards the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		threshold, policy, err := resolveGrading(c, gradingFlags{
			Policy:           srvPolicy,
			Threshold:        srvThreshold,
			ThresholdChanged: cmd.Flags().Changed("threshold"),
		})
		if err != nil {
			return err
		}
		log := setupLogger(slog.LevelInfo)
		x, provider, err := buildExtractor(c, runtimeOptions{ProviderFlag: srvProvider, ModelFlag: srvModel, OllamaHost: srvOllamaHost}, log)
		if err != nil {
			return err
		}
		sess := session.New(x, session.Options{
			Threshold: threshold,
			Policy:    policy,
			Workers:   c.Workers,
			Logger:    log,
		})

		out := cmd.OutOrStdout()
		if len(args) > 0 {
			files, err := utils.ExpandInputs(args)
			if err != nil {
				return err
			}
			snap, err := sess.IngestFiles(cmd.Context(), files)
			var be *session.BatchError
			switch {
			case errors.As(err, &be):
				printWarnings(cmd.ErrOrStderr(), be.Warnings)
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %v; starting with an empty session\n", err)
			case err != nil:
				return err
			default:
				printWarnings(cmd.ErrOrStderr(), snap.Warnings)
				fmt.Fprintf(out, "✓ Preloaded %d grades from %d file(s)\n", snap.Dataset.Len(), len(snap.Sources))
			}
		}

		addr := srvAddr
		if addr == "" {
			addr = c.ListenAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}
		srv := server.New(server.Config{
			Session:        sess,
			Logger:         log,
			AllowedOrigins: srvOrigins,
			Policies:       c.Policies(),
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(out, "✓ Serving session %s on http://%s (provider %s)\n", sess.ID, addr, provider)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	serveCmd.Flags().StringVar(&srvProvider, "provider", "", "model provider for PDF/Word/text uploads: openrouter|gemini|ollama")
	serveCmd.Flags().StringVar(&srvModel, "model", "", "model used to extract tables from documents")
	serveCmd.Flags().StringVar(&srvOllamaHost, "ollama-host", "", "Ollama host (default from config or CLASSREPORT_OLLAMA_HOST)")
	serveCmd.Flags().StringSliceVar(&srvOrigins, "cors-origin", nil, "allowed CORS origins for the correction UI (repeatable)")
	addGradingFlags(serveCmd, &srvPolicy, &srvThreshold)
}
