// Package loam loads a flow from a directory of Markdown, JSON or YAML documents, one block
// per document, using the Loam library.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/loam"
)

// WatchPattern selects the documents that make up a flow.
const WatchPattern = "**/*.{md,json,yaml,yml}"

// Source adapts a Loam repository to ports.FlowSource.
type Source struct {
	Repo *loam.TypedRepository[BlockMetadata]
}

// New creates a new Loam flow source.
func New(repo *loam.TypedRepository[BlockMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open opens the directory read-only, in strict mode so numbers decode consistently across
// Markdown, JSON and YAML documents.
func Open(dir string) (*Source, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow directory %s: %w", dir, err)
	}
	return New(loam.NewTypedRepository[BlockMetadata](repo)), nil
}

var (
	_ ports.FlowSource = (*Source)(nil)
	_ ports.Watchable  = (*Source)(nil)
)

// Load assembles the graph from every document. Exactly one document must be of type "flow".
func (s *Source) Load(ctx context.Context) (*domain.Graph, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	raw := domain.RawGraph{}
	headerAt := ""
	seen := make(map[string]string)

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	for _, doc := range docs {
		meta := doc.Data
		if strings.EqualFold(meta.Type, HeaderType) {
			if headerAt != "" {
				return nil, fmt.Errorf("%w: flow header defined in both '%s' and '%s'", domain.ErrInvalidGraph, headerAt, doc.ID)
			}
			headerAt = doc.ID
			raw.FlowID = meta.FlowID
			raw.StartBlockID = meta.Start
			continue
		}

		id := meta.ID
		if id == "" {
			id = doc.ID
		}
		id = trimExtension(id)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: collision detected: ID '%s' is defined in both '%s' and '%s'", domain.ErrInvalidGraph, id, existing, doc.ID)
		}
		seen[id] = doc.ID

		raw.Blocks = append(raw.Blocks, toRawBlock(id, meta, doc.Content))
	}

	if headerAt == "" {
		return nil, fmt.Errorf("%w: no document of type %q", domain.ErrInvalidGraph, HeaderType)
	}
	return domain.DecodeGraph(raw)
}

func toRawBlock(id string, meta BlockMetadata, content string) domain.RawBlock {
	rb := domain.RawBlock{ID: id, Type: meta.Type, NextBlockID: trimExtension(meta.Next)}

	switch domain.BlockKind(strings.ToUpper(meta.Type)) {
	case domain.BlockIntentDetection:
		mappings := make(map[string]string, len(meta.Mappings))
		for intent, target := range meta.Mappings {
			mappings[intent] = trimExtension(target)
		}
		rb.Data = map[string]any{
			"intents":         meta.Intents,
			"mappings":        mappings,
			"fallbackBlockId": trimExtension(meta.Fallback),
		}
	default:
		text := meta.Text
		if text == "" {
			text = strings.TrimSpace(content)
		}
		rb.Data = map[string]any{"text": text}
	}
	return rb
}

// Watch implements ports.Watchable.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, WatchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// trimExtension maps a document path to a block id. Only document extensions are stripped so
// ids such as "faq.v2" survive.
func trimExtension(id string) string {
	switch ext := filepath.Ext(id); strings.ToLower(ext) {
	case ".md", ".json", ".yaml", ".yml":
		id = strings.TrimSuffix(id, ext)
	}
	return filepath.ToSlash(id)
}
