package tsv_test

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lizgehret/q2-fmt/internal/adapters/tsv"
	"github.com/lizgehret/q2-fmt/internal/domain/groupdist"
	"github.com/lizgehret/q2-fmt/internal/domain/model"
	"github.com/stretchr/testify/require"
)

const metadataTSV = "sample-id\ttime\tdonor\tcohort\n" +
	"#q2:types\tnumeric\tcategorical\tcategorical\n" +
	"# a comment\n" +
	"s1\t0\td1\t\n" +
	"s2\t7\td1\t\n" +
	"c1\t\t\tctrl\n"

func TestReadMetadata(t *testing.T) {
	md, err := tsv.ReadMetadata(strings.NewReader(metadataTSV))
	require.NoError(t, err)
	require.Equal(t, []string{"s1", "s2", "c1"}, md.IDs())
	require.Equal(t, []string{"time", "donor", "cohort"}, md.ColumnNames())

	c, err := md.Column("time")
	require.NoError(t, err)
	require.Equal(t, model.Numeric, c.Kind)
	require.False(t, c.Cells[2].Present)

	cohort, err := md.Column("cohort")
	require.NoError(t, err)
	require.Equal(t, model.PresentCell("ctrl"), cohort.Cells[2])
}

func TestReadMetadataInfersKinds(t *testing.T) {
	in := "#SampleID,days,site\n# leading comment\na,1.5,gut\nb,,skin\n"
	md, err := tsv.ReadMetadata(strings.NewReader(in))
	require.NoError(t, err)

	days, _ := md.Column("days")
	site, _ := md.Column("site")
	require.Equal(t, model.Numeric, days.Kind)
	require.Equal(t, model.Categorical, site.Kind)
}

func TestReadMetadataErrors(t *testing.T) {
	cases := map[string]struct {
		in   string
		want error
	}{
		"empty":            {"  \n", tsv.ErrEmpty},
		"bad id header":    {"name\tx\na\t1\n", tsv.ErrIDHeader},
		"bad type":         {"id\tx\n#q2:types\tdate\na\t1\n", tsv.ErrTypeDirective},
		"late directive":   {"id\tx\na\t1\n#q2:types\tnumeric\n", tsv.ErrParse},
		"numeric mismatch": {"id\tx\n#q2:types\tnumeric\na\tabc\n", tsv.ErrParse},
		"duplicate id":     {"id\tx\na\t1\na\t2\n", model.ErrDuplicateSample},
		"duplicate column": {"id\tx\tx\na\t1\t2\n", model.ErrDuplicateColumn},
		"extra fields":     {"id\tx\na\t1\t2\n", tsv.ErrParse},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tsv.ReadMetadata(strings.NewReader(tc.in), tsv.WithDelimiter('\t'))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	md, err := tsv.ReadMetadata(strings.NewReader(metadataTSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteMetadata(&buf, md))
	require.True(t, strings.HasPrefix(buf.String(), "id\ttime\tdonor\tcohort\n#q2:types\tnumeric\tcategorical\tcategorical\n"))

	back, err := tsv.ReadMetadata(&buf)
	require.NoError(t, err)
	require.Equal(t, md.IDs(), back.IDs())
	require.Equal(t, md.Columns(), back.Columns())
}

func TestDistanceMatrix(t *testing.T) {
	in := "\ta\tb\tc\n" +
		"a\t0\t0.5\t0.25\n" +
		"b\t0.5\t0\t0.75\n" +
		"c\t0.25\t0.75\t0\n"
	dm, err := tsv.ReadDistanceMatrix(strings.NewReader(in))
	require.NoError(t, err)
	d, ok := dm.Distance("b", "c")
	require.True(t, ok)
	require.Equal(t, 0.75, d)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteDistanceMatrix(&buf, dm))
	require.Equal(t, in, buf.String())
}

func TestDistanceMatrixErrors(t *testing.T) {
	_, err := tsv.ReadDistanceMatrix(strings.NewReader("\ta\tb\nb\t0\t1\na\t1\t0\n"))
	require.ErrorIs(t, err, tsv.ErrParse)

	_, err = tsv.ReadDistanceMatrix(strings.NewReader("\ta\tb\na\t0\t1\nb\t2\t0\n"))
	require.ErrorIs(t, err, model.ErrAsymmetric)

	_, err = tsv.ReadDistanceMatrix(strings.NewReader("\ta\tb\na\t0\tx\nb\t1\t0\n"))
	var pe *tsv.ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, 2, pe.Line)
}

func TestAlphaSeries(t *testing.T) {
	in := "\tshannon_entropy\ns1\t1.5\ns2\t2\n"
	s, err := tsv.ReadAlphaSeries(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, "shannon_entropy", s.Name())
	v, ok := s.Value("s2")
	require.True(t, ok)
	require.Equal(t, 2.0, v)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteAlphaSeries(&buf, s))
	require.Equal(t, in, buf.String())

	_, err = tsv.ReadAlphaSeries(strings.NewReader("id\tx\ns1\tabc\n"))
	require.ErrorIs(t, err, tsv.ErrParse)
}

func TestGroupDist(t *testing.T) {
	tbl, err := groupdist.New(groupdist.Ordinal, []groupdist.Row{
		{Group: groupdist.OrdinalGroup(0), Value: 0.5, Subject: "P1"},
		{Group: groupdist.OrdinalGroup(7), Value: 0.125},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteGroupDist(&buf, tbl))
	require.Equal(t, "group\tvalue\tsubject\n0\t0.5\tP1\n7\t0.125\t\n", buf.String())

	back, err := tsv.ReadGroupDist(&buf, groupdist.Ordinal)
	require.NoError(t, err)
	require.True(t, back.Equal(tbl))
}

func TestGroupDistEmpty(t *testing.T) {
	tbl, err := groupdist.New(groupdist.Nominal, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tsv.WriteGroupDist(&buf, tbl))
	require.Equal(t, "group\tvalue\tsubject\n", buf.String())

	back, err := tsv.ReadGroupDist(&buf, groupdist.Nominal)
	require.NoError(t, err)
	require.Equal(t, 0, back.Len())
}

func TestGroupDistSchemaMismatch(t *testing.T) {
	_, err := tsv.ReadGroupDist(strings.NewReader("group\tvalue\tsubject\ncontrol\t0.1\t\n"), groupdist.Ordinal)
	var sm *groupdist.SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	require.Equal(t, 2, sm.Line)

	_, err = tsv.ReadGroupDist(strings.NewReader("group\tvalue\n"), groupdist.Nominal)
	require.True(t, errors.Is(err, groupdist.ErrSchemaMismatch))
}

func TestDetectDelimiter(t *testing.T) {
	require.Equal(t, ',', tsv.DetectDelimiter([]byte("id,a,b\nx,1,2\ny,3,4\n")))
	require.Equal(t, '\t', tsv.DetectDelimiter([]byte("id\ta\tb\nx\t1\t2\ny\t3\t4\n")))
}

func TestDecompress(t *testing.T) {
	payload := []byte("\tshannon\ns1\t1\n")

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zl bytes.Buffer
	zw := zlib.NewWriter(&zl)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	cases := map[string]struct {
		in   []byte
		want tsv.Compression
	}{
		"plain": {payload, tsv.None},
		"gzip":  {gz.Bytes(), tsv.Gzip},
		"zlib":  {zl.Bytes(), tsv.Zlib},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rc, c, err := tsv.Decompress(bytes.NewReader(tc.in))
			require.NoError(t, err)
			defer rc.Close()
			require.Equal(t, tc.want, c)
			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}

	require.Equal(t, tsv.Zip, tsv.Detect([]byte{0x50, 0x4b, 0x03, 0x04, 0, 0}))
	require.Equal(t, tsv.XZ, tsv.Detect([]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}))
	require.Equal(t, tsv.BZip2, tsv.Detect([]byte("BZh91AY")))
	require.Equal(t, tsv.None, tsv.Detect([]byte("x")))
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpha.tsv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte("id\tobserved_features\ns1\t12\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	rc, err := tsv.Open(path)
	require.NoError(t, err)
	defer rc.Close()
	s, err := tsv.ReadAlphaSeries(rc)
	require.NoError(t, err)
	require.Equal(t, "observed_features", s.Name())

	_, err = tsv.Open(filepath.Join(t.TempDir(), "missing.tsv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
