package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

const (
	documentName = "index.json"
	manifestName = "pipelines.json"
)

// Manifest lists the persisted pipelines.
type Manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Pipelines   []ManifestEntry `json:"pipelines"`
}

// ManifestEntry summarizes one persisted pipeline document.
type ManifestEntry struct {
	Type        string    `json:"type"`
	BatchID     string    `json:"batch_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Count       int       `json:"count"`
	Path        string    `json:"path"`
}

// Store reads and atomically writes index documents below an output
// directory: <dir>/<type>/index.json and <dir>/pipelines.json.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// DocumentPath returns the file a pipeline document is written to.
func (s *Store) DocumentPath(typ string) string {
	return filepath.Join(s.dir, typ, documentName)
}

// RelativeDocumentPath returns the slash separated location of a pipeline
// document relative to the output directory.
func RelativeDocumentPath(typ string) string {
	return typ + "/" + documentName
}

// ValidType reports whether typ can be used as an output directory name.
func ValidType(typ string) bool {
	return typ != "" && typ != "." && typ != ".." && !strings.ContainsAny(typ, `/\`)
}

// Write persists doc atomically. Readers observe either the previous
// document or the new one, never a partial write.
func (s *Store) Write(ctx context.Context, doc Document) error {
	if !ValidType(doc.Type) {
		return ferrors.PersistError(fmt.Sprintf("invalid content type %q", doc.Type)).Build()
	}
	if doc.Records == nil {
		doc.Records = []content.FileContent{}
	}
	doc.Count = len(doc.Records)

	dest := s.DocumentPath(doc.Type)
	if err := writeJSONAtomic(ctx, dest, doc); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPersist, "write content index").
			WithContext("pipeline", doc.Type).
			WithContext("path", dest).
			Build()
	}
	return nil
}

// Read loads the persisted document of typ. A missing document is a
// NotFoundError.
func (s *Store) Read(typ string) (Document, error) {
	if !ValidType(typ) {
		return Document{}, ferrors.NotFoundError(fmt.Sprintf("unknown content type %q", typ)).Build()
	}
	var doc Document
	if err := readJSON(s.DocumentPath(typ), &doc); err != nil {
		return Document{}, classifyRead(err, typ)
	}
	return doc, nil
}

// WriteManifest persists the pipeline manifest atomically.
func (s *Store) WriteManifest(ctx context.Context, m Manifest) error {
	if m.Pipelines == nil {
		m.Pipelines = []ManifestEntry{}
	}
	dest := filepath.Join(s.dir, manifestName)
	if err := writeJSONAtomic(ctx, dest, m); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryPersist, "write pipeline manifest").
			WithContext("path", dest).
			Build()
	}
	return nil
}

// ReadManifest loads the pipeline manifest.
func (s *Store) ReadManifest() (Manifest, error) {
	var m Manifest
	if err := readJSON(filepath.Join(s.dir, manifestName), &m); err != nil {
		return Manifest{}, classifyRead(err, "")
	}
	return m, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func classifyRead(err error, typ string) error {
	if errors.Is(err, fs.ErrNotExist) {
		b := ferrors.NotFoundError("content index not found").WithCause(err)
		if typ != "" {
			b = b.WithContext("pipeline", typ)
		}
		return b.Build()
	}
	return ferrors.WrapError(err, ferrors.CategoryPersist, "read content index").Build()
}

// writeJSONAtomic writes v to a temporary file in the destination directory,
// syncs it, renames it over dest and syncs the directory.
func writeJSONAtomic(ctx context.Context, dest string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = os.Chmod(tmpPath, 0o644)

	// Last point where cancellation leaves the committed file untouched.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	return d.Sync()
}
