// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - VideoStore: Video/thumbnail/tag-set persistence
//   - TaskStore: Task queue persistence with atomic claiming
//   - TorrentStore: Torrent metadata persistence
//   - ConfigStore: Application configuration
//
// # External Collaborators
//
// These wrap black-box services and tools with a request/response
// contract; the core never reimplements them:
//
//   - EmbeddingService: Text → fixed-dimension vectors
//   - Reranker: Pairwise (query, document) relevance scoring
//   - VisionTagger: Image → visual tag list
//   - FilenameExtractor: File path → structured filename metadata
//   - MediaProber, PreviewGenerator, ThumbnailGenerator: ffmpeg-driven
//     probing and transcoding
//   - TorrentParser: Bencode .torrent decoding
package driven
