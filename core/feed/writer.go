package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"feed-merger/core/graph"
	"feed-merger/core/storage"

	"github.com/minio/minio-go/v7"
)

// Sink receives the tables of a feed.
type Sink interface {
	Create(name string) (io.WriteCloser, error)
}

// Write renders every non-empty table of g into sink.
func Write(sink Sink, g *graph.Graph) error {
	for _, kind := range graph.MergeOrder {
		schema := graph.SchemaOf(kind)
		if schema.File == "" {
			continue
		}
		rows := rowsOf(g, kind)
		if len(rows) == 0 {
			continue
		}
		if err := WriteTable(sink, schema, rows); err != nil {
			return fmt.Errorf("write %s: %w", schema.File, err)
		}
	}
	return nil
}

// Entities returns the entities of kind that have a row in the kind's table,
// in output order. Shapes and calendars without pattern are implied by other
// tables and have none.
func Entities(g *graph.Graph, kind graph.Kind) []graph.Entity {
	if graph.SchemaOf(kind).File == "" {
		return nil
	}
	all := g.All(kind)
	rows := all[:0]
	for _, e := range all {
		if c, ok := e.(*graph.Calendar); ok && !c.HasPattern {
			continue
		}
		rows = append(rows, e)
	}
	return rows
}

func rowsOf(g *graph.Graph, kind graph.Kind) [][]string {
	var rows [][]string
	for _, e := range Entities(g, kind) {
		rows = append(rows, e.Values())
	}
	return rows
}

// WriteTable writes one table with its header.
func WriteTable(sink Sink, schema *graph.Schema, rows [][]string) error {
	w, err := sink.Create(schema.File)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Names()); err != nil {
		w.Close()
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

type dirSink string

func (d dirSink) Create(name string) (io.WriteCloser, error) {
	return os.Create(filepath.Join(string(d), name))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type zipSink struct{ zw *zip.Writer }

// ZipSink writes tables as entries of zw.
func ZipSink(zw *zip.Writer) Sink {
	return zipSink{zw: zw}
}

func (z zipSink) Create(name string) (io.WriteCloser, error) {
	w, err := z.zw.Create(name)
	if err != nil {
		return nil, err
	}
	return nopCloser{w}, nil
}

// WriteDir writes g as tables in dir, creating it if needed.
func WriteDir(dir string, g *graph.Graph) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return Write(dirSink(dir), g)
}

// WriteZip writes g as a zip archive to w.
func WriteZip(w io.Writer, g *graph.Graph) error {
	zw := zip.NewWriter(w)
	if err := Write(zipSink{zw: zw}, g); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WritePath writes a zip archive when path ends in .zip, a directory otherwise.
func WritePath(path string, g *graph.Graph) error {
	if !isZip(path) {
		return WriteDir(path, g)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteZip(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Upload writes g as a zip object to the bucket.
func Upload(ctx context.Context, client storage.Client, bucket, object string, g *graph.Graph) (minio.UploadInfo, error) {
	var buf bytes.Buffer
	if err := WriteZip(&buf, g); err != nil {
		return minio.UploadInfo{}, err
	}
	info, err := client.PutObject(ctx, bucket, object, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "application/zip"})
	if err != nil {
		return minio.UploadInfo{}, fmt.Errorf("upload %s: %w", object, err)
	}
	return info, nil
}

func isZip(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}
