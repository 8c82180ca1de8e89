package artifact_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/lizgehret/q2-fmt/internal/adapters/artifact"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/adapters/blob/memory"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/stretchr/testify/require"
)

func ordinal(t *testing.T) *groupdist.Table {
	t.Helper()
	tbl, err := groupdist.New(groupdist.Ordinal, []groupdist.Row{
		{Group: groupdist.OrdinalGroup(0), Value: 0.5, Subject: "P1"},
		{Group: groupdist.OrdinalGroup(7), Value: 0.25},
	})
	require.NoError(t, err)
	return tbl
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tbl := ordinal(t)

	ref, err := artifact.Save(ctx, store, tbl, artifact.WithPrefix("runs/job-1"))
	require.NoError(t, err)
	require.NotEmpty(t, ref.UUID)
	require.Equal(t, "runs/job-1/"+ref.UUID, ref.Key)

	list, err := store.List(ctx, ref.Key+"/")
	require.NoError(t, err)
	require.Len(t, list, 2)

	m, back, err := artifact.Load(ctx, store, ref.Key)
	require.NoError(t, err)
	require.Equal(t, ref.UUID, m.UUID)
	require.Equal(t, "GroupDist[Ordinal]", m.Type)
	require.Equal(t, artifact.Format, m.Format)
	require.True(t, back.Equal(tbl))
}

func TestLoadRejectsMismatchedMarker(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	nominal, err := groupdist.New(groupdist.Nominal, []groupdist.Row{{Group: groupdist.NominalGroup("control"), Value: 1}})
	require.NoError(t, err)
	_, err = store.Put(ctx, "x/"+artifact.DataFile, strings.NewReader("group\tvalue\tsubject\ncontrol\t1\t\n"), core.PutOptions{})
	require.NoError(t, err)
	_, err = store.Put(ctx, "x/"+artifact.MetadataFile,
		strings.NewReader("uuid: x\ntype: GroupDist[Ordinal]\nformat: TSVFileDirFmt\n"), core.PutOptions{})
	require.NoError(t, err)

	_, _, err = artifact.Load(ctx, store, "x")
	var sm *groupdist.SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	require.Equal(t, 2, sm.Line)

	ref, err := artifact.Save(ctx, store, nominal, artifact.WithUUID("fixed"))
	require.NoError(t, err)
	require.Equal(t, "fixed", ref.Key)
	_, back, err := artifact.Load(ctx, store, "fixed")
	require.NoError(t, err)
	require.Equal(t, groupdist.Nominal, back.Kind())
}

func TestLoadMissingOrUnknownMarker(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	_, err := store.Put(ctx, "a/"+artifact.DataFile, strings.NewReader("group\tvalue\tsubject\n"), core.PutOptions{})
	require.NoError(t, err)
	_, _, err = artifact.Load(ctx, store, "a")
	require.True(t, errors.Is(err, groupdist.ErrSchemaMismatch))

	_, err = store.Put(ctx, "b/"+artifact.MetadataFile, strings.NewReader("uuid: b\ntype: FeatureTable[Frequency]\nformat: TSVFileDirFmt\n"), core.PutOptions{})
	require.NoError(t, err)
	_, _, err = artifact.Load(ctx, store, "b")
	require.True(t, errors.Is(err, groupdist.ErrSchemaMismatch))

	_, _, err = artifact.Load(ctx, store, "nothing-here")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestSaveTwiceWithSameUUIDFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := artifact.Save(ctx, store, ordinal(t), artifact.WithUUID("dup"))
	require.NoError(t, err)
	_, err = artifact.Save(ctx, store, ordinal(t), artifact.WithUUID("dup"))
	require.ErrorIs(t, err, core.ErrExists)
}

// failingStore refuses writes to keys ending in suffix.
type failingStore struct {
	core.Store
	suffix string
}

func (f failingStore) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.HasSuffix(key, f.suffix) {
		return core.Info{}, errors.New("disk full")
	}
	return f.Store.Put(ctx, key, r, opts)
}

func TestSaveRemovesDataWhenManifestFails(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()
	store := failingStore{Store: backing, suffix: artifact.MetadataFile}

	_, err := artifact.Save(ctx, store, ordinal(t), artifact.WithPrefix("runs/job-2"))
	require.Error(t, err)
	require.Contains(t, err.Error(), artifact.MetadataFile)

	list, err := backing.List(ctx, "runs/job-2/")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	ref, err := artifact.Save(ctx, store, ordinal(t), artifact.WithPrefix("runs/job-3"))
	require.NoError(t, err)
	require.NoError(t, artifact.Remove(ctx, store, ref.Key))

	list, err := store.List(ctx, "runs/job-3/")
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, artifact.Remove(ctx, store, ref.Key))
}
