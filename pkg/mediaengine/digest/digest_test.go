package digest

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloDigest = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestReaderKnownVector(t *testing.T) {
	sum, err := Reader(strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, helloDigest, sum)
}

func TestHasherChunkedMatchesWholeStream(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 4096)

	whole, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)

	h := NewHasher()
	for i := 0; i < len(data); i += 100 {
		end := i + 100
		if end > len(data) {
			end = len(data)
		}
		_, err := h.Write(data[i:end])
		require.NoError(t, err)
	}
	assert.Equal(t, whole, h.Sum())
}

func TestFileMatchesReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "media.bin")
	data := []byte("hello world")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, helloDigest, sum)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Error(t, err)
}

func TestTeeHashesWhileCopying(t *testing.T) {
	data := []byte("one pass, one digest")

	tee, hasher := Tee(bytes.NewReader(data))
	var sink bytes.Buffer
	n, err := io.Copy(&sink, tee)
	require.NoError(t, err)

	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, sink.Bytes())

	want, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, want, hasher.Sum())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestReaderPropagatesError(t *testing.T) {
	_, err := Reader(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}
