package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/wlmatch/internal/domain"
)

type stubCollector struct {
	rs    domain.RecordSet
	res   domain.ListResult
	specs []domain.ListSpec
}

func (c *stubCollector) Collect(ctx context.Context, spec domain.ListSpec) (domain.RecordSet, domain.ListResult) {
	c.specs = append(c.specs, spec)
	res := c.res
	res.URL = spec.URL
	return c.rs, res
}

func TestLoadHome_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.csv")
	require.NoError(t, os.WriteFile(p, []byte("Name\nJaws\nHeat\n"), 0o644))

	rs, res, err := LoadHome(context.Background(), domain.HomeSpec{File: p}, nil)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	require.Equal(t, DefaultHomeLabel, rs[0].Source)
	require.Equal(t, domain.HomeResult{Label: DefaultHomeLabel, Origin: "file", Target: p, Records: 2}, res)
}

func TestLoadHome_FileSchemaError(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.csv")
	require.NoError(t, os.WriteFile(p, []byte("Title\nJaws\n"), 0o644))

	rs, res, err := LoadHome(context.Background(), domain.HomeSpec{File: p}, nil)
	require.Error(t, err)
	require.Empty(t, rs)
	require.Equal(t, domain.ErrCodeSchemaError, res.ErrorCode)
}

func TestLoadHome_FileWithoutTitlesIsEmptySource(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.csv")
	require.NoError(t, os.WriteFile(p, []byte("Name\n\n"), 0o644))

	_, res, err := LoadHome(context.Background(), domain.HomeSpec{File: p, Label: "Mine"}, nil)
	require.True(t, domain.IsEmptySource(err))
	require.Equal(t, domain.ErrCodeEmptySource, res.ErrorCode)
	require.Equal(t, "Mine", res.Label)
}

func TestLoadHome_URLUsesWatchlistShape(t *testing.T) {
	col := &stubCollector{rs: domain.RecordSet{{Name: "Jaws", Source: "Minha"}}, res: domain.ListResult{Stop: domain.StopLastPage}}

	rs, res, err := LoadHome(context.Background(), domain.HomeSpec{URL: "https://x.test/u/watchlist/", Label: "Minha"}, col)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	require.Equal(t, "url", res.Origin)
	require.Len(t, col.specs, 1)
	require.Equal(t, domain.ShapeWatchlist, col.specs[0].Shape)
	require.Equal(t, "Minha", col.specs[0].Label)
}

func TestLoadHome_URLFetchFailedWithoutRecords(t *testing.T) {
	col := &stubCollector{res: domain.ListResult{Stop: domain.StopFetchFailed, ErrorCode: domain.ErrCodeFetchFailed, ErrorMsg: "HTTP 500"}}

	_, res, err := LoadHome(context.Background(), domain.HomeSpec{URL: "https://x.test/u/watchlist/"}, col)
	require.Error(t, err)
	require.Equal(t, domain.ErrCodeFetchFailed, res.ErrorCode)
}

func TestLoadHome_URLEmptyIsEmptySource(t *testing.T) {
	col := &stubCollector{res: domain.ListResult{Stop: domain.StopEmptyPage}}

	_, res, err := LoadHome(context.Background(), domain.HomeSpec{URL: "https://x.test/u/watchlist/"}, col)
	require.True(t, domain.IsEmptySource(err))
	require.Equal(t, domain.ErrCodeEmptySource, res.ErrorCode)
}

func TestLoadHome_NoSource(t *testing.T) {
	_, res, err := LoadHome(context.Background(), domain.HomeSpec{}, nil)
	require.Error(t, err)
	require.Equal(t, domain.ErrCodeConfigMissingSource, res.ErrorCode)
}
