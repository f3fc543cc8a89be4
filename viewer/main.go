// Command viewer serves the self-play archive over HTTP: game lists, turn by
// turn boards, win statistics per agent and an endpoint that re-runs a
// search on any position.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/brensch/colosseum/config"
	"github.com/brensch/colosseum/executor/mcts"
	"github.com/brensch/colosseum/logging"
)

func main() {
	listen := flag.String("listen", config.String("LISTEN", "127.0.0.1:8080"), "HTTP listen address")
	dataDirs := flag.String("data-dirs", config.String("DATA_DIRS", filepath.Join("data", "selfplay")), "Comma-separated directories holding turns_*/games_* parquet batches")
	debugDir := flag.String("debug-dir", config.String("DEBUG_DIR", "debug_games"), "Directory written by debuggame")
	staticDir := flag.String("static-dir", config.String("STATIC_DIR", ""), "Optional directory to serve as SPA static")
	searchWorkers := flag.Int("search-workers", config.Int("SEARCH_WORKERS", 1), "Root-parallel trees for /api/search")
	logLevel := flag.String("log-level", config.String("LOG_LEVEL", "info"), "Log level")
	logFormat := flag.String("log-format", config.String("LOG_FORMAT", logging.FormatConsole), "Log format: console, json or pretty")
	flag.Parse()

	logger, err := logging.New(logging.Options{Level: *logLevel, Format: *logFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	roots := parseDataRoots(*dataDirs)
	logger.Info().Str("roots", strings.Join(roots, ",")).Str("debug_dir", *debugDir).Msg("viewer data roots")

	search := mcts.DefaultConfig()
	search.Workers = *searchWorkers

	srv := NewServer(roots, *debugDir, search, logger)
	defer srv.Close()

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	if *staticDir != "" {
		mux.Handle("/", spaHandler(*staticDir))
	}

	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *listen).Msg("viewer listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes load.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
