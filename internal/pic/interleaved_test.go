package pic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterleavedSetAt(t *testing.T) {
	p := NewInterleaved(3, 2, 8, 1, 3)
	p.Set(1, 1, []uint16{10, 20, 30})
	require.Equal(t, []uint16{10, 20, 30}, p.At(1, 1))
}

func TestInterleavedRoundTripThroughPlanes(t *testing.T) {
	p := NewInterleaved(4, 3, 8, 0, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			p.Set(x, y, []uint16{uint16(x), uint16(y), uint16(x + y)})
		}
	}
	planes := p.ToPlanes()
	require.Len(t, planes, 3)
	require.Equal(t, uint16(2), planes[0].At(2, 0))
	require.Equal(t, uint16(1), planes[1].At(0, 1))
	require.Equal(t, uint16(3), planes[2].At(2, 1))

	rebuilt := FromPlanes(planes, 0)
	require.Equal(t, p.At(2, 1), rebuilt.At(2, 1))
}
