package pbwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestRange_AllWireTypes(t *testing.T) {
	var b []byte
	b = AppendString(b, 1, "hello")
	b = AppendVarint(b, 2, 300)
	b = AppendFixed64(b, 3, 0xdeadbeef)
	b = AppendBool(b, 4, true)
	b = protowire.AppendTag(b, 5, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	var got []Field
	require.NoError(t, Range(b, func(f Field) error {
		got = append(got, f)
		return nil
	}))

	require.Len(t, got, 5)
	assert.Equal(t, "hello", got[0].String())
	assert.Equal(t, uint64(300), got[1].Int)
	assert.Equal(t, uint64(0xdeadbeef), got[2].Int)
	assert.True(t, got[3].Bool())
	assert.Equal(t, uint64(7), got[4].Int)
}

func TestAppend_OmitsZeroValues(t *testing.T) {
	var b []byte
	b = AppendString(b, 1, "")
	b = AppendVarint(b, 2, 0)
	b = AppendFixed64(b, 3, 0)
	b = AppendBytes(b, 4, nil)
	assert.Empty(t, b)

	b = AppendVarintAlways(b, 2, 0)
	assert.NotEmpty(t, b)
}

func TestRange_Truncated(t *testing.T) {
	b := AppendString(nil, 1, "hello")
	err := Range(b[:len(b)-2], func(Field) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 1")
}
