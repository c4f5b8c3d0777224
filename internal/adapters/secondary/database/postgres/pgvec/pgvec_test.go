package pgvec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltnet/moltnet/internal/adapters/secondary/database/postgres/pgvec"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.2, 0.3, 1, -1, 0}
	encoded := pgvec.Encode(vec)
	decoded, err := pgvec.Decode(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, len(vec))
	for i := range vec {
		assert.InDelta(t, vec[i], decoded[i], 1e-6)
	}
}

func TestDecodeEmpty(t *testing.T) {
	decoded, err := pgvec.Decode("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := pgvec.Decode("not-a-vector")
	assert.Error(t, err)
}
