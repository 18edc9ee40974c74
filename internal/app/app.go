// Package app wires configuration, event feeds and the assembler into a
// single generate-and-write pipeline shared by the CLI, the scheduler and
// the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"calbook/internal/assemble"
	"calbook/internal/cell"
	"calbook/internal/collage"
	"calbook/internal/config"
	"calbook/internal/holiday"
	"calbook/internal/ics"
	appLog "calbook/internal/log"
	"calbook/internal/metrics"
	"calbook/internal/model"
	"calbook/internal/scratch"
)

// Pipeline runs one configured generation at a time.
type Pipeline struct {
	cfg       *config.Config
	loader    *ics.Loader
	assembler *assemble.Assembler

	mu sync.Mutex
}

// New validates cfg and builds a Pipeline. m may be nil.
func New(cfg *config.Config, m *metrics.Metrics) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	layout, err := collage.ParseLayout(cfg.CollageLayout)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		loader: ics.NewLoader(cfg.Events.CacheDir),
		assembler: &assemble.Assembler{
			Renderer: cell.Renderer{
				Images: cell.FileOpener{},
				Layout: layout,
			},
			Parallel: cfg.ParallelMonths,
			Metrics:  m,
			Pool:     scratch.NewPool(),
		},
	}, nil
}

// Events loads every configured feed for the year and appends the selected
// holidays after them in creation order.
func (p *Pipeline) Events(ctx context.Context) ([]model.DayEvent, error) {
	loc, err := p.cfg.Location()
	if err != nil {
		return nil, err
	}
	sources := make([]ics.Source, 0, len(p.cfg.Events.Sources))
	for _, s := range p.cfg.Events.Sources {
		sources = append(sources, ics.Source{ID: s.ID, Location: s.Location})
	}

	events, err := p.loader.Events(ctx, sources, ics.ExpandConfig{Year: p.cfg.Year, Location: loc})
	if err != nil {
		return nil, err
	}

	sels, err := p.cfg.HolidaySelections()
	if err != nil {
		return nil, err
	}
	next := 0
	for _, ev := range events {
		if ev.CreationOrder >= next {
			next = ev.CreationOrder + 1
		}
	}
	return append(events, holiday.Events(p.cfg.Year, sels, next)...), nil
}

// Header reads the configured header document. It returns nil when none is
// configured.
func (p *Pipeline) Header() (*model.HeaderDocument, error) {
	path := p.cfg.Header.Document
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("app: read header %s: %w", path, err)
	}
	name := p.cfg.Header.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &model.HeaderDocument{
		PDF:         data,
		JanuaryPage: p.cfg.Header.JanuaryPage,
		Name:        name,
	}, nil
}

// Generate builds the configured document without writing it.
func (p *Pipeline) Generate(ctx context.Context) (*model.GeneratedDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generate(ctx)
}

// Run generates the document and writes it into the output directory.
func (p *Pipeline) Run(ctx context.Context) (*model.GeneratedDocument, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, err := p.generate(ctx)
	if err != nil {
		return nil, "", err
	}
	path, err := p.write(doc)
	if err != nil {
		return nil, "", err
	}
	return doc, path, nil
}

func (p *Pipeline) generate(ctx context.Context) (*model.GeneratedDocument, error) {
	genType, err := model.ParseGenerationType(p.cfg.GenerationType)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	events, err := p.Events(ctx)
	if err != nil {
		return nil, err
	}
	var header *model.HeaderDocument
	if genType.RequiresHeader() {
		if header, err = p.Header(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.assembler.Generate(assemble.Request{
		Year:   p.cfg.Year,
		Type:   genType,
		Events: events,
		Header: header,
	})
}

// write stores doc atomically under the output directory.
func (p *Pipeline) write(doc *model.GeneratedDocument) (string, error) {
	dir := p.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("app: create output dir: %w", err)
	}
	path := filepath.Join(dir, doc.Filename)

	tmp, err := os.CreateTemp(dir, ".calbook-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("app: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(doc.PDF); err != nil {
		tmp.Close()
		return "", fmt.Errorf("app: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("app: write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("app: write %s: %w", path, err)
	}
	appLog.Info("document written", "path", path, "bytes", len(doc.PDF), "generation_id", doc.ID)
	return path, nil
}
