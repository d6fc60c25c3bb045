package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/mediatheque/internal/adapters/driving/api"
	"github.com/veldt-labs/mediatheque/internal/adapters/driving/watch"
	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/services"
	"github.com/veldt-labs/mediatheque/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background pipeline and HTTP API",
	Long: `Starts the task scheduler, the filesystem watcher and the HTTP API,
then blocks until interrupted. All background work (scanning, probing,
artifact generation, enrichment, index rebuilds) runs inside this process.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	log := logger.New("serve")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := services.NewScheduler(store.TaskStore(), pollInterval(), logger.New("scheduler"))
	sched.Register(domain.TaskScan, scanService.HandleScan)
	sched.Register(domain.TaskMetadata, mediaService.HandleMetadata)
	sched.Register(domain.TaskPreview, mediaService.HandlePreview)
	sched.Register(domain.TaskThumbnail, mediaService.HandleThumbnail)
	sched.Register(domain.TaskFilenameMetadata, enrichService.HandleFilenameMetadata)
	sched.Register(domain.TaskTag, enrichService.HandleTag)
	sched.Register(domain.TaskEmbedding, indexService.HandleEmbedding)
	sched.Register(domain.TaskTorrentTags, torrentService.HandleTorrentTags)
	sched.Start(ctx)
	defer sched.Stop()

	// Search starts against whatever is already enriched; an unreachable
	// embedding server only delays the index, it does not block serving.
	if err := indexService.Rebuild(ctx); err != nil {
		log.Warn().Err(err).Msg("initial index build failed, starting with empty index")
	}

	watcher := watch.NewWatcher(taskQueue, cfg.GetStringSlice("media.folders"), 0, logger.New("watch"))
	if err := watcher.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("filesystem watcher unavailable")
	}
	defer watcher.Stop()

	handler := api.NewServer(searchService, taskQueue, store.VideoStore(), logger.New("api"))
	srv := &http.Server{
		Addr:              cfg.GetString("api.listen"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", srv.Addr).Msg("api listening")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("api shutdown")
	}
	return nil
}
