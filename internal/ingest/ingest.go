// Package ingest walks a notes directory, fragments each note, embeds
// changed fragments, and persists them through the fragment store.
package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
	"github.com/seanblong/notesearch/internal/ai"
	"github.com/seanblong/notesearch/internal/fragmenter"
	"github.com/seanblong/notesearch/internal/store"
	"github.com/seanblong/notesearch/pkg/models"
	"gopkg.in/yaml.v3"
)

// FileSystemWalker defines the interface for walking directories
type FileSystemWalker interface {
	Walk(root string, options *godirwalk.Options) error
}

// FileReader defines the interface for reading files
type FileReader interface {
	ReadFile(filename string) ([]byte, error)
}

// DefaultFileSystemWalker implements FileSystemWalker using godirwalk
type DefaultFileSystemWalker struct{}

func (d *DefaultFileSystemWalker) Walk(root string, options *godirwalk.Options) error {
	return godirwalk.Walk(root, options)
}

// DefaultFileReader implements FileReader using os
type DefaultFileReader struct{}

func (d *DefaultFileReader) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// Ingester handles ingestion of a notes directory.
type Ingester struct {
	Store      store.FragmentStore
	NotesRoot  string
	Client     ai.Client
	Fragmenter *fragmenter.Fragmenter
	Walker     FileSystemWalker
	FileReader FileReader
}

// hashContent returns the SHA-1 hash of the given content as a hex string.
func hashContent(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// New creates a new Ingester instance.
func New(s store.FragmentStore, notesRoot string, frag *fragmenter.Fragmenter, clientConfig *ai.ClientConfig) (*Ingester, error) {
	client, err := ai.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &Ingester{
		Store:      s,
		NotesRoot:  notesRoot,
		Client:     client,
		Fragmenter: frag,
		Walker:     &DefaultFileSystemWalker{},
		FileReader: &DefaultFileReader{},
	}, nil
}

// NewWithDependencies creates a new Ingester instance with custom dependencies for testing
func NewWithDependencies(s store.FragmentStore, notesRoot string, frag *fragmenter.Fragmenter, client ai.Client, walker FileSystemWalker, fileReader FileReader) *Ingester {
	return &Ingester{
		Store:      s,
		NotesRoot:  notesRoot,
		Client:     client,
		Fragmenter: frag,
		Walker:     walker,
		FileReader: fileReader,
	}
}

// workItem represents a file to be processed
type workItem struct {
	path    string
	content string
}

// frontMatter is the optional YAML header carried at the top of a note.
type frontMatter struct {
	Title      string   `yaml:"title"`
	SourceType string   `yaml:"source_type"`
	Tags       []string `yaml:"tags"`
	URL        string   `yaml:"url"`
	Created    string   `yaml:"created"`
}

// parseNote derives a Note from the file path and content. A leading
// YAML front-matter block overrides the path-derived defaults and is
// stripped from the indexed body.
func (in *Ingester) parseNote(path, content string) (models.Note, string) {
	relPath := rel(in.NotesRoot, path)
	note := models.Note{
		ID:         relPath,
		Title:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourceType: "note",
	}

	body := content
	if strings.HasPrefix(content, "---\n") {
		if end := strings.Index(content[4:], "\n---"); end >= 0 {
			var fm frontMatter
			header := content[4 : 4+end]
			if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("unparseable front matter, ignoring")
			} else {
				if fm.Title != "" {
					note.Title = fm.Title
				}
				if fm.SourceType != "" {
					note.SourceType = fm.SourceType
				}
				note.Tags = fm.Tags
				note.URL = fm.URL
				if fm.Created != "" {
					if t, err := time.Parse("2006-01-02", fm.Created); err == nil {
						note.CreatedAt = t
					} else {
						log.Warn().Str("path", path).Str("created", fm.Created).Msg("front matter date is not YYYY-MM-DD")
					}
				}
				// Skip past the closing delimiter line.
				rest := strings.TrimPrefix(content[4+end:], "\n")
				if i := strings.Index(rest, "\n"); i >= 0 {
					body = rest[i+1:]
				} else {
					body = ""
				}
				body = strings.TrimLeft(body, "\n")
			}
		}
	}

	return note, body
}

// processWorkItem handles the processing of a single file
func (in *Ingester) processWorkItem(ctx context.Context, item workItem) error {
	note, body := in.parseNote(item.path, item.content)

	frags, err := in.Fragmenter.Split(body)
	if err != nil {
		log.Error().Err(err).Str("path", item.path).Msg("fragmenting failed")
		return err
	}
	if len(frags) == 0 {
		log.Debug().Str("path", item.path).Msg("note too short, skipping")
		return nil
	}

	for _, frag := range frags {
		hash := hashContent(frag.Text)

		var needEmbed bool
		meta, found, err := in.Store.GetFragmentMeta(ctx, note.ID, frag.Index)
		if err != nil {
			needEmbed = true
		} else {
			needEmbed = !found || meta.ContentHash != hash || !meta.HasEmbedding
		}

		var embedding []float32
		if needEmbed && in.Client != nil {
			embedding, err = in.Client.Embed(frag.Text)
			if err != nil {
				log.Warn().Err(err).Str("path", item.path).Int("fragment", frag.Index).
					Msg("embedding failed, storing fragment without vector")
			}
		}

		log.Info().Str("path", note.ID).
			Int("fragment", frag.Index).
			Int("tokens", frag.TokenCount).
			Bool("need_embed", needEmbed).
			Msg("ingesting fragment")
		if err := in.Store.UpsertFragment(ctx, note, frag, embedding, hash); err != nil {
			log.Error().Err(err).Str("path", item.path).Msg("upsert failed")
		}
	}
	return nil
}

func (in *Ingester) Run(ctx context.Context) error {
	// Determine number of workers (default to number of CPU cores)
	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8 // Cap at 8 to avoid overwhelming the AI API
	}

	log.Info().Int("workers", numWorkers).Msg("starting concurrent ingestion")

	// Create channels for work distribution
	workChan := make(chan workItem, numWorkers*2) // Buffer to keep workers busy
	errorChan := make(chan error, 1)

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Debug().Int("worker", workerID).Msg("worker started")

			for item := range workChan {
				if err := in.processWorkItem(ctx, item); err != nil {
					select {
					case errorChan <- err:
					default:
						// Error channel is full, log the error
						log.Error().Err(err).Str("path", item.path).Msg("worker processing error")
					}
				}
			}

			log.Debug().Int("worker", workerID).Msg("worker finished")
		}(i)
	}

	// Start a goroutine to close errorChan when all workers are done
	go func() {
		wg.Wait()
		close(errorChan)
	}()

	// Walk files and send them to workers
	walkErr := in.Walker.Walk(in.NotesRoot, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			// Handle test case where de might be nil (for MockFileSystemWalker)
			if de != nil && de.IsDir() {
				return nil
			}
			if shouldSkip(path) {
				return nil
			}

			b, err := in.FileReader.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read file")
				return nil
			}

			// Send work item to channel
			select {
			case workChan <- workItem{path: path, content: string(b)}:
				// Successfully sent to worker
			case <-ctx.Done():
				return ctx.Err()
			}

			return nil
		},
	})

	// Close work channel to signal workers to finish
	close(workChan)

	// Wait for all workers to complete
	wg.Wait()

	// Check for any errors
	select {
	case err := <-errorChan:
		if err != nil {
			return err
		}
	default:
	}

	return walkErr
}

// shouldSkip returns true unless the file at path is a plain-text note.
func shouldSkip(path string) bool {
	p := strings.ToLower(path)
	if strings.Contains(p, "/.git/") ||
		strings.Contains(p, "/.obsidian/") ||
		strings.Contains(p, "/.trash/") ||
		strings.Contains(p, "/node_modules/") ||
		strings.Contains(p, "/.cache/") {
		return true
	}
	switch filepath.Ext(p) {
	case ".md", ".markdown", ".txt", ".org", ".rst":
		return false
	}
	return true
}

func rel(root, p string) string {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return r
}
