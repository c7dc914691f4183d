// Package addrmap implements pure bit-slice address decoders. Decoding
// never mutates state and never depends on simulation time; it is a leaf
// package, grounded on the decode_address routine of the reference LPDDR5
// controller, generalized from its single hard-coded ROW_BANK_COLUMN scheme
// to all four schemes below.
package addrmap

import "math/bits"

// Scheme selects which address bit-fields map to which physical fields.
type Scheme uint8

// The four address mapping schemes this package supports.
const (
	RowBankColumn Scheme = iota
	RowColumnBank
	BankRowColumn
	Custom
)

// Fields is the decoded address: the physical location a byte address
// resolves to.
type Fields struct {
	Channel   uint16
	Rank      uint16
	BankGroup uint16
	Bank      uint16
	Row       uint32
	Column    uint32
}

// Organization is the subset of internal/timing.Organization that decoding
// needs. It is duplicated here (rather than imported) to keep addrmap free
// of a dependency on the timing package — decoding only cares about bit
// widths, not cycle counts.
type Organization struct {
	NumChannels       uint16
	RanksPerChannel   uint16
	BankGroupsPerRank uint16
	BanksPerBankGroup uint16
	RowsPerBank       uint32
	ColumnsPerRow     uint32
}

func (o Organization) banksPerRank() uint16 {
	return o.BankGroupsPerRank * o.BanksPerBankGroup
}

// CustomFunc decodes an address using host-supplied logic, for Scheme ==
// Custom.
type CustomFunc func(addr uint64) Fields

// Mapper decodes a byte address into its physical fields.
type Mapper struct {
	scheme Scheme
	org    Organization
	custom CustomFunc

	channelBits, rankBits, bankGroupBits, bankBits, rowBits, colBits uint
}

// New builds a Mapper for the given scheme and organization. Custom requires
// a non-nil CustomFunc, supplied via WithCustomFunc; a Mapper built with
// Custom and no function decodes everything to the zero Fields value.
func New(scheme Scheme, org Organization) *Mapper {
	m := &Mapper{scheme: scheme, org: org}
	m.channelBits = bitsFor(uint64(org.NumChannels))
	m.rankBits = bitsFor(uint64(org.RanksPerChannel))
	m.bankGroupBits = bitsFor(uint64(org.BankGroupsPerRank))
	m.bankBits = bitsFor(uint64(org.BanksPerBankGroup))
	m.rowBits = bitsFor(uint64(org.RowsPerBank))
	m.colBits = bitsFor(uint64(org.ColumnsPerRow))
	return m
}

// WithCustomFunc attaches the decode function used when scheme == Custom.
func (m *Mapper) WithCustomFunc(f CustomFunc) *Mapper {
	m.custom = f
	return m
}

// bitsFor returns the number of bits needed to address n distinct values
// (0 and 1 both need zero bits, matching how a single-channel/single-rank
// organization contributes no address bits).
func bitsFor(n uint64) uint {
	if n <= 1 {
		return 0
	}
	return uint(bits.Len64(n - 1))
}

// Decode resolves a byte address into its physical fields according to the
// mapper's scheme. Column is the innermost (least significant) field
// except under RowColumnBank, where bank and bank group come first.
func (m *Mapper) Decode(addr uint64) Fields {
	switch m.scheme {
	case RowColumnBank:
		return m.decodeRowColumnBank(addr)
	case BankRowColumn:
		return m.decodeBankRowColumn(addr)
	case Custom:
		if m.custom != nil {
			return m.custom(addr)
		}
		return Fields{}
	default:
		return m.decodeRowBankColumn(addr)
	}
}

// decodeRowBankColumn favors sequential streaming: column varies fastest,
// then bank, then row.
func (m *Mapper) decodeRowBankColumn(addr uint64) Fields {
	var f Fields
	f.Column = uint32(extract(&addr, m.colBits))
	f.Bank = uint16(extract(&addr, m.bankBits))
	f.BankGroup = uint16(extract(&addr, m.bankGroupBits))
	f.Row = uint32(extract(&addr, m.rowBits))
	f.Rank = uint16(extract(&addr, m.rankBits))
	f.Channel = uint16(extract(&addr, m.channelBits))
	return f
}

// decodeRowColumnBank favors strided access across banks: bank varies
// fastest, then column, then row.
func (m *Mapper) decodeRowColumnBank(addr uint64) Fields {
	var f Fields
	f.Bank = uint16(extract(&addr, m.bankBits))
	f.BankGroup = uint16(extract(&addr, m.bankGroupBits))
	f.Column = uint32(extract(&addr, m.colBits))
	f.Row = uint32(extract(&addr, m.rowBits))
	f.Rank = uint16(extract(&addr, m.rankBits))
	f.Channel = uint16(extract(&addr, m.channelBits))
	return f
}

// decodeBankRowColumn favors bank interleaving at small offsets: column
// varies fastest, then row, then bank.
func (m *Mapper) decodeBankRowColumn(addr uint64) Fields {
	var f Fields
	f.Column = uint32(extract(&addr, m.colBits))
	f.Row = uint32(extract(&addr, m.rowBits))
	f.Bank = uint16(extract(&addr, m.bankBits))
	f.BankGroup = uint16(extract(&addr, m.bankGroupBits))
	f.Rank = uint16(extract(&addr, m.rankBits))
	f.Channel = uint16(extract(&addr, m.channelBits))
	return f
}

// extract pulls the low n bits off addr, consuming them (shifting addr
// right by n), and returns them as a plain uint64.
func extract(addr *uint64, n uint) uint64 {
	if n == 0 {
		return 0
	}
	mask := uint64(1)<<n - 1
	v := *addr & mask
	*addr >>= n
	return v
}
