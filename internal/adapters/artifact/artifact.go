// Package artifact packages a grouped distribution table as a directory:
//
//	<uuid>/metadata.yaml         uuid, semantic type and directory format
//	<uuid>/data/group-dists.tsv  the table
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
)

const (
	// Format is the directory format name recorded in metadata.yaml.
	Format = "TSVFileDirFmt"

	MetadataFile = "metadata.yaml"
	DataFile     = "data/group-dists.tsv"
)

// Manifest is the content of metadata.yaml.
type Manifest struct {
	UUID   string
	Type   string
	Format string
}

// Ref locates a saved artifact.
type Ref struct {
	UUID  string
	Key   string // directory key in the store, prefix included
	Bytes int    // size of the data file
}

type options struct {
	prefix string
	id     string
}

// Option configures Save.
type Option func(*options)

// WithPrefix places the artifact directory under prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithUUID fixes the artifact uuid instead of generating one.
func WithUUID(id string) Option {
	return func(o *options) { o.id = id }
}

// Save writes t and its manifest to store.
func Save(ctx context.Context, store core.Store, t *groupdist.Table, opts ...Option) (Ref, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	dir := path.Join(o.prefix, o.id)

	var data bytes.Buffer
	if err := tsv.WriteGroupDist(&data, t); err != nil {
		return Ref{}, err
	}
	manifest, err := yaml.Parser().Marshal(map[string]interface{}{
		"uuid":   o.id,
		"type":   t.Kind().SemanticType(),
		"format": Format,
	})
	if err != nil {
		return Ref{}, fmt.Errorf("encode manifest: %w", err)
	}

	size := data.Len()
	meta := map[string]string{"semantic-type": t.Kind().SemanticType()}
	if _, err := store.Put(ctx, path.Join(dir, DataFile), &data,
		core.PutOptions{ContentType: "text/tab-separated-values", Metadata: meta}); err != nil {
		return Ref{}, fmt.Errorf("write %s: %w", DataFile, err)
	}
	if _, err := store.Put(ctx, path.Join(dir, MetadataFile), bytes.NewReader(manifest),
		core.PutOptions{ContentType: "application/yaml", Metadata: meta}); err != nil {
		err = fmt.Errorf("write %s: %w", MetadataFile, err)
		if rmErr := Remove(context.WithoutCancel(ctx), store, dir); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return Ref{}, err
	}
	return Ref{UUID: o.id, Key: dir, Bytes: size}, nil
}

// Remove deletes the files of the artifact under dir. Files that are
// already gone are skipped.
func Remove(ctx context.Context, store core.Store, dir string) error {
	var errs []error
	for _, name := range []string{DataFile, MetadataFile} {
		if _, err := store.Delete(ctx, path.Join(dir, name)); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads the artifact under dir and validates the table against the
// manifest's semantic type.
func Load(ctx context.Context, store core.Store, dir string) (Manifest, *groupdist.Table, error) {
	m, err := ReadManifest(ctx, store, dir)
	if err != nil {
		return Manifest{}, nil, err
	}
	kind, err := groupdist.ParseKind(m.Type)
	if err != nil {
		return Manifest{}, nil, &groupdist.SchemaMismatchError{Reason: fmt.Sprintf("unknown semantic type %q", m.Type)}
	}
	if m.Format != Format {
		return Manifest{}, nil, &groupdist.SchemaMismatchError{Reason: fmt.Sprintf("unknown format %q", m.Format)}
	}

	_, rc, err := store.Get(ctx, path.Join(dir, DataFile))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Manifest{}, nil, &groupdist.SchemaMismatchError{Reason: "missing " + DataFile}
		}
		return Manifest{}, nil, err
	}
	defer rc.Close()
	t, err := tsv.ReadGroupDist(rc, kind)
	if err != nil {
		return Manifest{}, nil, err
	}
	return m, t, nil
}

// ReadManifest reads and decodes metadata.yaml.
func ReadManifest(ctx context.Context, store core.Store, dir string) (Manifest, error) {
	_, rc, err := store.Get(ctx, path.Join(dir, MetadataFile))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			if _, herr := store.Head(ctx, path.Join(dir, DataFile)); herr == nil {
				return Manifest{}, &groupdist.SchemaMismatchError{Reason: "missing " + MetadataFile}
			}
		}
		return Manifest{}, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return Manifest{}, err
	}
	raw, err := yaml.Parser().Unmarshal(b)
	if err != nil {
		return Manifest{}, &groupdist.SchemaMismatchError{Reason: fmt.Sprintf("%s: %v", MetadataFile, err)}
	}
	m := Manifest{
		UUID:   stringField(raw, "uuid"),
		Type:   stringField(raw, "type"),
		Format: stringField(raw, "format"),
	}
	if m.Type == "" {
		return Manifest{}, &groupdist.SchemaMismatchError{Reason: MetadataFile + " has no type"}
	}
	return m, nil
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
