package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/custodia-labs/arrgate/internal/core/domain"
	"github.com/custodia-labs/arrgate/internal/core/ports/driven"
	"github.com/custodia-labs/arrgate/internal/logger"
)

// Ensure Repository implements the interfaces.
var (
	_ driven.ArtifactRepository = (*Repository)(nil)
	_ driven.ArtifactWatcher    = (*Repository)(nil)
)

// Repository loads artifacts from a file or a directory tree.
type Repository struct {
	path   string
	schema *jsonschema.Schema
}

// NewRepository creates a repository rooted at path.
func NewRepository(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: artifact path is empty", domain.ErrInvalidInput)
	}
	schema, err := compileArtifactSchema()
	if err != nil {
		return nil, err
	}
	return &Repository{path: filepath.Clean(path), schema: schema}, nil
}

// Path returns the artifact source path.
func (r *Repository) Path() string {
	return r.path
}

// List returns every valid artifact, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Artifact, error) {
	files, err := r.files()
	if err != nil {
		return nil, err
	}
	logger.Debug("Found %d artifact files under %s", len(files), r.path)

	artifacts := make([]domain.Artifact, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("Skipping %s: %v", file, err)
			continue
		}
		artifact, err := decodeArtifact(r.schema, raw)
		if err != nil {
			logger.Warn("Skipping %s: %v", file, err)
			continue
		}
		artifact.Source = file
		artifacts = append(artifacts, artifact)
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w: no valid artifacts in %s", domain.ErrNoArtifacts, r.path)
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Timestamp.After(artifacts[j].Timestamp)
	})
	return artifacts, nil
}

// files returns the candidate artifact files in lexical order.
func (r *Repository) files() ([]string, error) {
	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrNoArtifacts, r.path)
		}
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}
	if !info.IsDir() {
		return []string{r.path}, nil
	}

	var files []string
	err = filepath.WalkDir(r.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isArtifactFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", r.path, err)
	}
	return files, nil
}

func isArtifactFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
