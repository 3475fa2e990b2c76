package compress

import (
	"bytes"
	"testing"

	"github.com/hupe1980/brickstream/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	// Highly compressible brick: a smooth ramp repeated.
	data := bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7}, 4096)

	for _, c := range []model.Compression{model.CompressionNone, model.CompressionLZ4, model.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			enc, err := Encode(data, c)
			require.NoError(t, err)
			if c != model.CompressionNone {
				assert.Less(t, len(enc), len(data))
			}

			dec, err := Decode(enc, c)
			require.NoError(t, err)
			assert.Equal(t, data, dec)
		})
	}
}

func TestEncode_IncompressibleStoredRaw(t *testing.T) {
	data := []byte{7}
	enc, err := Encode(data, model.CompressionLZ4)
	require.NoError(t, err)
	assert.Len(t, enc, headerSize+1)

	dec, err := Decode(enc, model.CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode([]byte{1, 2}, model.CompressionNone)
	assert.ErrorIs(t, err, ErrCorrupt)

	enc, err := Encode(bytes.Repeat([]byte{9}, 1024), model.CompressionZSTD)
	require.NoError(t, err)
	_, err = Decode(enc[:len(enc)-4], model.CompressionZSTD)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Encode(nil, model.Compression(9))
	assert.Error(t, err)
}
