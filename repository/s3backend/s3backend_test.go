package s3backend_test

import (
	"testing"

	"github.com/dionysius/drepo/repository/s3backend"
	"github.com/stretchr/testify/assert"
)

func TestNewTrimsPrefixSlashes(t *testing.T) {
	b := s3backend.New(nil, "my-bucket", "/repos/debian/")
	assert.Equal(t, "my-bucket", b.Bucket)
	assert.Equal(t, "repos/debian", b.Prefix)
}
