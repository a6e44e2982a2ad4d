package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Serve starts an HTTP server over a repository's destination directory,
// for local inspection of what the last Mirror run produced. Only
// filesystem destinations (a bare path, or a "file://" URL) have a local
// directory to serve - S3 and null destinations have nothing for this to
// point at.
func (a *Application) Serve(ctx context.Context, repoName, host string, port int) error {
	repo, err := a.findRepository(repoName)
	if err != nil {
		return err
	}

	dir, err := localDestinationPath(repo.Destination)
	if err != nil {
		return err
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("destination directory does not exist: %s (run 'mirror' first)", dir)
	}

	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 8080
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	slog.Info("Starting HTTP server", "address", addr, "directory", absDir, "repository", repo.Name)

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(dir)))

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErr := make(chan error, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// A new mirror run touched the destination: clients polling
				// for changes can refetch, there's nothing server-side to
				// regenerate since the directory itself is the served tree.
				slog.Debug("Destination changed, refetch recommended", "path", event.Name, "op", event.Op.String())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Watcher error", "error", err)
			}
		}
	}()

	go func() {
		slog.Info("Server is ready", "url", fmt.Sprintf("http://%s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("failed to start server: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		slog.Info("Server stopped gracefully")
	}

	return nil
}

// localDestinationPath returns the filesystem directory a repository
// destination resolves to, or an error if the destination isn't local.
func localDestinationPath(destination string) (string, error) {
	if !strings.Contains(destination, "://") {
		return destination, nil
	}

	u, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination %q: %w", destination, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("cannot serve non-filesystem destination %q locally", destination)
	}
	return u.Path, nil
}
