package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/fleetcheck/internal/httpapi"
	apimw "github.com/hamed0406/fleetcheck/internal/httpapi/middleware"
	"github.com/hamed0406/fleetcheck/internal/repo/memory"
	"github.com/hamed0406/fleetcheck/internal/report"
	"github.com/hamed0406/fleetcheck/internal/scheduler"
)

var (
	serveHistory int
	serveSyslog  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <manifest>",
	Short: "Check the fleet on an interval and serve results over HTTP",
	Args:  cobra.ExactArgs(1),
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "API bind address")
	serveCmd.Flags().DurationVar(&cfg.RunInterval, "interval", cfg.RunInterval, "time between runs; 0 runs only on demand")
	serveCmd.Flags().IntVar(&serveHistory, "history", memory.DefaultCapacity, "runs kept in memory")
	serveCmd.Flags().BoolVar(&cfg.AlertOnRecovery, "alert-on-recovery", cfg.AlertOnRecovery, "notify when a failing check passes again")
	serveCmd.Flags().DurationVar(&cfg.AlertCooldown, "alert-cooldown", cfg.AlertCooldown, "minimum time between failure alerts for one check")
	serveCmd.Flags().BoolVar(&serveSyslog, "syslog", false, "log failures of every run to syslog instead of the application log")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	servers, err := loadServers(args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs := memory.New(serveHistory)
	alerter := scheduler.NewAlerter(memory.NewAlerts(), newNotifier(logger), scheduler.AlerterConfig{
		AlertOnRecovery: cfg.AlertOnRecovery,
		Cooldown:        cfg.AlertCooldown,
	})
	periodic := scheduler.NewPeriodic(logger, newDispatcher(logger), servers, checkOptions(false), runs, alerter, cfg.RunInterval)
	if serveSyslog {
		periodic.Sink = syslogOrLogger(logger)
	}
	go periodic.Run(ctx)

	api := httpapi.NewServer(logger, runs, periodic, servers)
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.Int("servers", len(servers)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("api_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// syslogOrLogger returns the syslog sink when it can be opened, otherwise the
// application logger.
func syslogOrLogger(logger *zap.Logger) report.Sink {
	sink := report.SyslogSink{Tag: report.LogTag}
	w, err := sink.Open()
	if err != nil {
		logger.Warn("syslog_unavailable", zap.Error(err))
		return report.ZapSink{Logger: logger}
	}
	_ = w.Close()
	return sink
}
