package crypto

import (
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	const emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	assert.Equal(t, emptyDigest, HashBytes(nil))

	fromReader, err := HashReader(strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte("%PDF-1.7")), fromReader)
	assert.Len(t, fromReader, 64)

	_, err = HashReader(iotest.ErrReader(iotest.ErrTimeout))
	assert.ErrorIs(t, err, iotest.ErrTimeout)
}
