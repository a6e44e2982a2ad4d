package common

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alitto/pond/v2"

	"github.com/dionysius/drepo/compression"
)

// NewDeCompressor creates and initializes a new decompressor with a worker pool
func NewDeCompressor(ctx context.Context, maxConcurrency int) *DeCompressor {
	pool := pond.NewResultPool[Result](maxConcurrency, pond.WithContext(ctx), pond.WithoutPanicRecovery())

	return &DeCompressor{
		pool: pool,
	}
}

// DeCompressor handles parallel compression/decompression operations
type DeCompressor struct {
	pool pond.ResultPool[Result]
}

// DeCompressResult contains the outcome of a single decompression job
type DeCompressResult string

func (r *DeCompressResult) Destination() string {
	return string(*r)
}

func (d *DeCompressor) decompressSingle(sourcePath string) (*DeCompressResult, error) {
	format := compression.DetectFromFilename(sourcePath)
	if format == compression.None {
		return nil, fmt.Errorf("unknown compression format for file: %s", sourcePath)
	}

	// Derive destination path by removing compression extension
	destPath := format.TrimSuffix(sourcePath)

	// Open compressed file
	compressedFile, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = compressedFile.Close() }()

	// Get decompressed reader based on format
	reader, err := compression.NewReader(format, compressedFile)
	if err != nil {
		return nil, err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	// Create uncompressed file
	uncompressedFile, err := os.Create(destPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := uncompressedFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Copy decompressed data
	_, err = io.Copy(uncompressedFile, reader)
	if err != nil {
		return nil, err
	}

	result := DeCompressResult(destPath)
	return &result, nil
}

func (d *DeCompressor) compressSingle(sourcePath string, format compression.Compression) (*DeCompressResult, error) {
	if format == compression.None {
		return nil, fmt.Errorf("compression format required")
	}

	// Derive destination path from source + format
	destPath := sourcePath + format.Suffix()

	// Open source file
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sourceFile.Close() }()

	// Create compressed file
	compressedFile, err := os.Create(destPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := compressedFile.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Get compressed writer based on format
	writer, err := compression.NewWriter(format, compressedFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	// Copy data with compression
	_, err = io.Copy(writer, sourceFile)
	if err != nil {
		return nil, err
	}

	result := DeCompressResult(destPath)
	return &result, nil
}

// Shutdown gracefully stops the decompressor
func (d *DeCompressor) Shutdown() {
	d.pool.StopAndWait()
}

// Decompress decompresses one or more files in parallel using a task group
// Destination paths are automatically derived by removing the compression extension.
// Returns a task group that can be waited on. Call Wait() to get results and any error.
// This method is thread-safe and can be called concurrently.
func (d *DeCompressor) Decompress(ctx context.Context, sourcePaths ...string) pond.ResultTaskGroup[Result] {
	group := d.pool.NewGroupContext(ctx)

	for _, sourcePath := range sourcePaths {
		group.SubmitErr(func() (Result, error) {
			return d.decompressSingle(sourcePath)
		})
	}

	return group
}

// Compress compresses a file into multiple formats in parallel using a task group
// Destination paths are automatically derived by appending the compression format extension.
// Returns a task group that can be waited on. Call Wait() to get results and any error.
// This method is thread-safe and can be called concurrently.
func (d *DeCompressor) Compress(ctx context.Context, sourcePath string, formats ...compression.Compression) pond.ResultTaskGroup[Result] {
	group := d.pool.NewGroupContext(ctx)

	for _, format := range formats {
		group.SubmitErr(func() (Result, error) {
			return d.compressSingle(sourcePath, format)
		})
	}

	return group
}
