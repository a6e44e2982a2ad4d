package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dionysius/drepo/compression"
)

func TestDeCompressorRoundTripsGzip(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "Packages")
	content := []byte("Package: example\nVersion: 1.0\n\n")
	require.NoError(t, os.WriteFile(srcPath, content, 0644))

	ctx := context.Background()
	dc := NewDeCompressor(ctx, 2)
	defer dc.Shutdown()

	compressGroup := dc.Compress(ctx, srcPath, compression.Gzip)
	compressResults, err := compressGroup.Wait()
	require.NoError(t, err)
	require.Len(t, compressResults, 1)
	assert.Equal(t, srcPath+".gz", compressResults[0].Destination())

	decompressGroup := dc.Decompress(ctx, compressResults[0].Destination())
	decompressResults, err := decompressGroup.Wait()
	require.NoError(t, err)
	require.Len(t, decompressResults, 1)
	assert.Equal(t, srcPath, decompressResults[0].Destination())

	got, err := os.ReadFile(decompressResults[0].Destination())
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDeCompressorRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "README")
	require.NoError(t, os.WriteFile(srcPath, []byte("hi"), 0644))

	ctx := context.Background()
	dc := NewDeCompressor(ctx, 1)
	defer dc.Shutdown()

	group := dc.Decompress(ctx, srcPath)
	_, err := group.Wait()
	assert.Error(t, err)
}
