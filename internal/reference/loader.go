package reference

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
)

// Source is one reference file before embedding.
type Source struct {
	Name    string
	Content string
}

// Loader reads reference texts from any afs location (local dir, gs://, s3://).
type Loader struct {
	fs  afs.Service
	ext string
}

func NewLoader() *Loader {
	return &Loader{fs: afs.New(), ext: ".txt"}
}

// Load returns every *.txt file directly under location, named after its stem.
// A missing location yields no sources.
func (l *Loader) Load(ctx context.Context, location string) ([]Source, error) {
	location = normalizeLocation(location)
	exists, err := l.fs.Exists(ctx, location)
	if err != nil || !exists {
		return nil, nil
	}
	objects, err := l.fs.List(ctx, location)
	if err != nil {
		return nil, err
	}
	var out []Source
	for _, object := range objects {
		if object.IsDir() || !strings.EqualFold(filepath.Ext(object.Name()), l.ext) {
			continue
		}
		data, err := l.fs.Download(ctx, object)
		if err != nil {
			return nil, err
		}
		out = append(out, Source{
			Name:    strings.TrimSuffix(object.Name(), filepath.Ext(object.Name())),
			Content: string(data),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func normalizeLocation(location string) string {
	if strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		return abs
	}
	return location
}
