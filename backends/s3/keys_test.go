package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "a/b.txt", pathToKey("/a/b.txt"))
	assert.Equal(t, "a", pathToKey("/a/"))
	assert.Equal(t, "", pathToKey("/"))
	assert.Equal(t, "a", parentKey("a/b.txt"))
	assert.Equal(t, "", parentKey("b.txt"))
	assert.Equal(t, "text/markdown", getContentType("/README.MD"))
	assert.Equal(t, "application/octet-stream", getContentType("/blob"))
}
