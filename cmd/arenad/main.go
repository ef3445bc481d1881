package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cyclearena/internal/config"
	"cyclearena/internal/engine"
	"cyclearena/internal/logging"
	"cyclearena/internal/metrics"
	"cyclearena/internal/port"
)

// arenad starts the HTTP + WebSocket arena server: load .env, init
// logging, build the engine and session store, start the tick loop, and
// serve /ws, /admin/config, /metrics, /healthz and static client assets
// until SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()

	var addr string
	var staticDir string
	var logFile string
	var logLevel string
	flag.StringVar(&addr, "addr", envOrDefault("ADDR", ":8080"), "server listen address, e.g. :8080")
	flag.StringVar(&staticDir, "static", "web", "directory of static client assets")
	flag.StringVar(&logFile, "log", envOrDefault("LOG_FILE", "arenad.log"), "log file path")
	flag.StringVar(&logLevel, "log-level", envOrDefault("LOG_LEVEL", "debug"), "log level: debug, info, warn, error")
	flag.Parse()

	log, closeLog, err := logging.New(logFile, logLevel)
	if err != nil {
		panic(err)
	}
	defer closeLog()

	cfgStore := config.NewStore(config.Default())
	m := &metrics.Metrics{}
	eng := engine.New(cfgStore, log, m)

	go eng.Run()

	sessions := port.NewStore()
	httpSrv := port.NewServer(eng, sessions, cfgStore, m, log)

	srv := &http.Server{Addr: addr, Handler: httpSrv.Router(staticDir)}

	go func() {
		log.Infow("arenad listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	eng.Stop()
}

// envOrDefault returns the named environment variable (as loaded from
// .env by godotenv, or the process environment) if set, else fallback.
// Flags set explicitly on the command line still take precedence, since
// flag.Parse overwrites these defaults after they're assigned.
func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
