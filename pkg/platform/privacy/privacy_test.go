package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasher(t *testing.T) {
	h := NewHasher("k1")

	t.Run("normalises case and whitespace", func(t *testing.T) {
		assert.Equal(t, h.Hash("Jane@Example.com"), h.Hash("  jane@example.com "))
	})

	t.Run("blank input yields empty digest", func(t *testing.T) {
		assert.Empty(t, h.Hash("   "))
	})

	t.Run("digest never contains the raw value", func(t *testing.T) {
		digest := h.Hash("0612345678")
		assert.Len(t, digest, digestBytes*2)
		assert.NotContains(t, digest, "0612345678")
	})

	t.Run("different keys give different digests", func(t *testing.T) {
		assert.NotEqual(t, h.Hash("0612345678"), NewHasher("k2").Hash("0612345678"))
	})

	t.Run("attr key is suffixed", func(t *testing.T) {
		attr := h.Attr("phone", "0612345678")
		assert.Equal(t, "phone_hash", attr.Key)
		assert.Equal(t, h.Hash("0612345678"), attr.Value.String())
	})
}
