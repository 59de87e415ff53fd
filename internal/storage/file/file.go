// internal/storage/file/file.go
package filestorage

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/storage"
)

const (
	extJSON = ".json"
	extGzip = ".json.gz"
)

// Backend stores each snapshot document as a JSON file in a directory,
// gzip-compressed when configured.
type Backend struct {
	cfg config.FileStorageConfig
}

// New creates a new file backend
func New(cfg config.FileStorageConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init creates the output directory.
func (b *Backend) Init() error {
	if b.cfg.Dir == "" {
		return errors.New("file storage: no output directory configured")
	}
	if err := os.MkdirAll(b.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// Path returns the file a document is written to.
func (b *Backend) Path(name string) string {
	ext := extJSON
	if b.cfg.Compress {
		ext = extGzip
	}
	return filepath.Join(b.cfg.Dir, name+ext)
}

// WriteDocument writes v to a temporary file and renames it over the
// previous version so readers never observe a partial document.
func (b *Backend) WriteDocument(ctx context.Context, name string, v any) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.cfg.Dir, "."+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if b.cfg.Compress {
		err = writeGzipJSON(tmp, v)
	} else {
		err = writeJSON(tmp, v)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), b.Path(name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// ReadDocument decodes the named document, accepting either encoding.
func (b *Backend) ReadDocument(_ context.Context, name string, v any) error {
	if err := validName(name); err != nil {
		return err
	}

	for _, ext := range b.readOrder() {
		err := readFile(filepath.Join(b.cfg.Dir, name+ext), ext == extGzip, v)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", name, storage.ErrNotFound)
}

func (b *Backend) Documents(_ context.Context) ([]storage.DocumentInfo, error) {
	entries, err := os.ReadDir(b.cfg.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", b.cfg.Dir, err)
	}

	var infos []storage.DocumentInfo
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		name, ok := documentName(entry.Name())
		if !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		infos = append(infos, storage.DocumentInfo{
			Name:      name,
			Size:      fi.Size(),
			UpdatedAt: fi.ModTime(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (b *Backend) readOrder() []string {
	if b.cfg.Compress {
		return []string{extGzip, extJSON}
	}
	return []string{extJSON, extGzip}
}

func readFile(path string, compressed bool, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}
	return json.NewDecoder(r).Decode(v)
}

func documentName(file string) (string, bool) {
	if name, ok := strings.CutSuffix(file, extGzip); ok {
		return name, true
	}
	return strings.CutSuffix(file, extJSON)
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func writeGzipJSON(w io.Writer, v any) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(v); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
