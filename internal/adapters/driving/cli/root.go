// Package cli wires the application together and exposes it as a set of
// cobra commands. Commands talk to package-level services that initRoot
// constructs before any command runs.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/veldt-labs/mediatheque/internal/adapters/driven/config/file"
	"github.com/veldt-labs/mediatheque/internal/adapters/driven/inference"
	"github.com/veldt-labs/mediatheque/internal/adapters/driven/media"
	"github.com/veldt-labs/mediatheque/internal/adapters/driven/storage/sqlite"
	"github.com/veldt-labs/mediatheque/internal/adapters/driven/torrent"
	"github.com/veldt-labs/mediatheque/internal/adapters/driven/vision"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driven"
	"github.com/veldt-labs/mediatheque/internal/core/services"
	"github.com/veldt-labs/mediatheque/internal/logger"
	"github.com/veldt-labs/mediatheque/internal/vectorindex"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// homeDir overrides the default ~/.mediatheque root.
var homeDir string

// Services the commands dispatch to. initRoot populates them; tests may
// swap them for mocks.
var (
	cfg            driven.ConfigStore
	store          *sqlite.Store
	taskQueue      *services.TaskQueue
	searchService  *services.SearchService
	indexService   *services.IndexService
	scanService    *services.ScanService
	mediaService   *services.MediaService
	enrichService  *services.EnrichService
	torrentService *services.TorrentService
)

var rootCmd = &cobra.Command{
	Use:   "mediatheque",
	Short: "Index and search a local video library",
	Long: `Mediatheque indexes a local video library and serves hybrid semantic
search over it. A background pipeline probes files, generates previews and
thumbnails, extracts metadata from filenames and tags frames with a vision
model; search combines vector retrieval with cross-encoder reranking.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		return initRoot()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "",
		"application directory (default ~/.mediatheque)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// initRoot builds the full service graph: config, storage, inference
// and media adapters, then the core services on top of them.
func initRoot() error {
	var err error
	cfg, err = file.NewConfigStore(homeDir)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	dataDir := ""
	if homeDir != "" {
		dataDir = filepath.Join(homeDir, "data")
	}
	store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	videos := store.VideoStore()
	texts := services.NewDocTextCache(1024)
	index := vectorindex.New()

	embedder := inference.NewEmbeddingService(inference.EmbedConfig{
		BaseURL:   cfg.GetString("inference.embed_url"),
		RateLimit: rate.Limit(cfg.GetFloat("inference.embed_rate_limit")),
	})
	reranker := inference.NewReranker(inference.RerankConfig{
		BaseURL:   cfg.GetString("inference.rerank_url"),
		RateLimit: rate.Limit(cfg.GetFloat("inference.rerank_rate_limit")),
	})

	apiKey := os.Getenv("OPENAI_API_KEY")
	extractor := vision.NewExtractor(vision.ExtractorConfig{
		APIKey:  apiKey,
		BaseURL: cfg.GetString("vision.base_url"),
		Model:   cfg.GetString("vision.model"),
	})
	tagger := vision.NewTagger(vision.TaggerConfig{
		APIKey:  apiKey,
		BaseURL: cfg.GetString("vision.base_url"),
		Model:   cfg.GetString("vision.model"),
	})

	previews := media.NewPreviewGenerator(media.PreviewConfig{
		OutputDir:      artifactDir("previews.dir", "previews"),
		Segments:       cfg.GetInt("previews.segments"),
		SegmentSeconds: cfg.GetFloat("previews.segment_seconds"),
		Height:         cfg.GetInt("previews.height"),
	})
	thumbs := media.NewThumbnailGenerator(media.ThumbnailConfig{
		OutputDir: artifactDir("thumbnails.dir", "thumbnails"),
		Count:     cfg.GetInt("thumbnails.count"),
		Height:    cfg.GetInt("thumbnails.height"),
	})

	taskQueue = services.NewTaskQueue(store.TaskStore())
	searchService = services.NewSearchService(videos, embedder, reranker, index, texts, logger.New("search"))
	indexService = services.NewIndexService(videos, embedder, index, texts, logger.New("indexer"))
	scanService = services.NewScanService(videos, taskQueue, cfg, logger.New("scan"))
	mediaService = services.NewMediaService(videos, taskQueue, media.NewProber(), previews, thumbs, logger.New("media"))
	enrichService = services.NewEnrichService(videos, extractor, tagger, texts, logger.New("enrich"))
	torrentService = services.NewTorrentService(videos, store.TorrentStore(), torrent.NewParser(), cfg, texts, logger.New("torrents"))
	return nil
}

// artifactDir resolves a generated-artifact directory: the configured
// value when set, otherwise a directory next to the config file.
func artifactDir(key, fallback string) string {
	if dir := cfg.GetString(key); dir != "" {
		return dir
	}
	return filepath.Join(filepath.Dir(cfg.Path()), fallback)
}

// pollInterval reads the scheduler poll interval from config.
func pollInterval() time.Duration {
	ms := cfg.GetInt("scheduler.poll_interval_ms")
	if ms <= 0 {
		return time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
