package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/li-boxuan/community/internal/config"
	"github.com/li-boxuan/community/internal/distill"
	"github.com/li-boxuan/community/pkg/logging"
	"github.com/li-boxuan/community/pkg/shutdown"
	"github.com/li-boxuan/community/pkg/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the distilled site locally",
	Long: `Serve the public directory over HTTP, along with a JSON rankings
API backed by the store. With --watch the site is re-distilled whenever the
meta-review dataset or a static source changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "listen address")
	serveCmd.Flags().Bool("watch", false, "re-distill when inputs change")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	listen, _ := cmd.Flags().GetString("listen")
	watch, _ := cmd.Flags().GetBool("watch")

	logger := newLogger(cfg)
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.HealthCheck(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)

	router.HandleFunc("/api/rankings", func(w http.ResponseWriter, r *http.Request) {
		ranked, err := distill.Rankings(st)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ranked)
	}).Methods(http.MethodGet)

	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.Dirs.Public)))

	server := &http.Server{
		Addr:         listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	manager := shutdown.New(10 * time.Second)
	manager.Register(shutdown.StopHTTPServer(server, "preview"))
	manager.Register(shutdown.CloseResource(st, "store"))

	if watch {
		watcher, err := startWatcher(cfg, st, logger, manager.Done())
		if err != nil {
			return err
		}
		manager.Register(shutdown.CloseResource(watcher, "watcher"))
	}

	go func() {
		logger.Info("preview server listening", map[string]interface{}{"addr": listen})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", map[string]interface{}{"error": err.Error()})
		}
	}()

	manager.Wait()
	return nil
}

// startWatcher re-distills the site when the dataset file or a static
// source changes. Events are debounced: editors fire several writes per
// save and one render per burst is enough.
func startWatcher(cfg *config.Config, st store.Store, logger *logging.Logger, done <-chan struct{}) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	watchDirs := []string{filepath.Dir(cfg.Data.MetaReviewFile)}
	watchDirs = append(watchDirs, cfg.Static.Dirs...)
	for _, dir := range watchDirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Info("watching for changes", map[string]interface{}{"dir": dir})
	}

	go func() {
		var pending <-chan time.Time
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("change detected", map[string]interface{}{"file": event.Name})
				pending = time.After(500 * time.Millisecond)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
			case <-pending:
				pending = nil
				redistill(cfg, st, logger)
			}
		}
	}()

	return watcher, nil
}

func redistill(cfg *config.Config, st store.Store, logger *logging.Logger) {
	d, err := distill.New(st, logger, cfg.Org)
	if err != nil {
		logger.Error("re-distill failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := distill.CollectStatic(logger, cfg.Dirs.Site, cfg.Static.Dirs); err != nil {
		logger.Error("re-collect failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := d.Render(cfg.Dirs.Public, cfg.Dirs.Site, false); err != nil {
		logger.Error("re-distill failed", map[string]interface{}{"error": err.Error()})
		return
	}
	logger.Info("site re-distilled")
}
