package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"feed-merger/core/graph"
	"feed-merger/core/storage"

	"github.com/minio/minio-go/v7"
)

// NameOf derives a feed name from a file or object path.
func NameOf(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// tablesRoot returns fsys, or its only subdirectory when the tables were
// archived inside a folder.
func tablesRoot(fsys fs.FS) (fs.FS, error) {
	if _, err := fs.Stat(fsys, graph.SchemaOf(graph.KindStop).File); err == nil {
		return fsys, nil
	}
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") && !strings.HasPrefix(e.Name(), "__") {
			dirs = append(dirs, e.Name())
		}
	}
	if len(dirs) == 1 {
		return fs.Sub(fsys, dirs[0])
	}
	return fsys, nil
}

func loadRoot(fsys fs.FS, opts Options) (*graph.Graph, error) {
	root, err := tablesRoot(fsys)
	if err != nil {
		return nil, err
	}
	return Load(root, opts)
}

// LoadPath loads a feed from a directory or a zip archive.
func LoadPath(p string, opts Options) (*graph.Graph, error) {
	if opts.Name == "" {
		opts.Name = NameOf(p)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loadRoot(os.DirFS(p), opts)
	}

	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer zr.Close()
	return loadRoot(zr, opts)
}

// LoadArchive loads a feed from zip archive bytes.
func LoadArchive(data []byte, opts Options) (*graph.Graph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return loadRoot(zr, opts)
}

// ErrObjectNotFound is returned when a feed object does not exist.
var ErrObjectNotFound = errors.New("feed object not found")

// LoadObject fetches a zip object from the bucket and loads it.
func LoadObject(ctx context.Context, client storage.Client, bucket, object string, opts Options) (*graph.Graph, error) {
	if opts.Name == "" {
		opts.Name = NameOf(object)
	}
	obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", object, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, object)
		}
		return nil, fmt.Errorf("read %s: %w", object, err)
	}
	return LoadArchive(data, opts)
}
