package hashutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/page-archiver/pkg/hashutil"
)

func TestHashBytesSHA256(t *testing.T) {
	// Known vector for "abc"
	got, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoSHA256)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestHashBytesBlake3(t *testing.T) {
	got, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Len(t, got, 64)

	// Deterministic for identical input
	again, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	// Distinct for distinct input
	other, err := hashutil.HashBytes([]byte("abd"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestHashBytesUnsupportedAlgo(t *testing.T) {
	_, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgo("md5"))
	assert.Error(t, err)
}
