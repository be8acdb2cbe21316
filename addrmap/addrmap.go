// Package addrmap provides the address-mapping collaborator the memory
// controller consumes: a pure function from a 64-bit physical address to
// its channel/rank/bank/row/column coordinates.
package addrmap

// Mapper is a deterministic, range-valid address-mapping function.
type Mapper interface {
	// Map decodes address into its channel/rank/bank/row/column
	// coordinates.
	Map(address uint64) (channel, rank, bank, row, col int)
}

// BitSliceMapper is the default address-mapping scheme: it slices the
// physical address into contiguous bit fields, column bits low, then bank,
// rank, channel, with everything above consumed by row. This mirrors the
// default (non-permuted) scheme in DRAMSim2's AddressMapping.cpp: the low
// bits select column, since consecutive accesses within a row should stay
// in the row buffer, and the row occupies the high bits since it changes
// least often.
type BitSliceMapper struct {
	ColumnBits  uint
	BankBits    uint
	RankBits    uint
	ChannelBits uint
	// RowBits is informational only; whatever remains above the other
	// fields is the row.

	// ByteOffsetBits discards the low bits addressing within a burst, since
	// the controller operates on burst-aligned addresses.
	ByteOffsetBits uint
}

// NewBitSliceMapper returns a BitSliceMapper sized from the given topology,
// choosing the minimal bit width for each field (channel/rank/bank counts
// need not be powers of two elsewhere in this repo, but the address
// decomposition itself assumes power-of-two field widths, as DRAMSim2's own
// mapper does).
func NewBitSliceMapper(numChannels, numRanks, numBanks int, burstBytes int) BitSliceMapper {
	return BitSliceMapper{
		ColumnBits:     0, // Map then decodes every column as 0; see WithColumnBits
		BankBits:       bitsFor(numBanks),
		RankBits:       bitsFor(numRanks),
		ChannelBits:    bitsFor(numChannels),
		ByteOffsetBits: bitsFor(burstBytes),
	}
}

func bitsFor(n int) uint {
	bits := uint(0)
	for (1 << bits) < n {
		bits++
	}

	return bits
}

// WithColumnBits sets the column field width explicitly; NewBitSliceMapper
// leaves it zero since the column width depends on page size, which this
// repo does not model beyond an opaque payload.
func (m BitSliceMapper) WithColumnBits(bits uint) BitSliceMapper {
	m.ColumnBits = bits
	return m
}

// Map implements Mapper.
func (m BitSliceMapper) Map(address uint64) (channel, rank, bank, row, col int) {
	a := address >> m.ByteOffsetBits

	col = int(extractBits(a, m.ColumnBits))
	a >>= m.ColumnBits

	bank = int(extractBits(a, m.BankBits))
	a >>= m.BankBits

	rank = int(extractBits(a, m.RankBits))
	a >>= m.RankBits

	channel = int(extractBits(a, m.ChannelBits))
	a >>= m.ChannelBits

	row = int(a)

	return channel, rank, bank, row, col
}

func extractBits(v uint64, bits uint) uint64 {
	if bits == 0 {
		return 0
	}

	return v & ((1 << bits) - 1)
}
