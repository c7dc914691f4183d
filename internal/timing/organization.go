package timing

// Organization describes the physical layout of a controller's attached
// memory: channel, rank, bank, row, and column counts.
type Organization struct {
	NumChannels        uint16
	RanksPerChannel    uint16
	BankGroupsPerRank  uint16
	BanksPerBankGroup  uint16
	RowsPerBank        uint32
	ColumnsPerRow      uint32
	DeviceWidth        uint16
	DevicesPerRank     uint16
	BurstLength        uint32
}

// BanksPerRank returns the number of banks addressable within one rank.
func (o Organization) BanksPerRank() uint16 {
	return o.BankGroupsPerRank * o.BanksPerBankGroup
}

// TotalBanks returns the number of banks across every channel and rank.
func (o Organization) TotalBanks() uint32 {
	return uint32(o.NumChannels) * uint32(o.RanksPerChannel) * uint32(o.BanksPerRank())
}

// ChannelCapacityBytes returns the addressable byte capacity of one channel.
func (o Organization) ChannelCapacityBytes() uint64 {
	return uint64(o.RanksPerChannel) *
		uint64(o.BanksPerRank()) *
		uint64(o.RowsPerBank) *
		uint64(o.ColumnsPerRow) *
		uint64(o.DeviceWidth/8) *
		uint64(o.DevicesPerRank)
}

// TotalCapacityBytes returns the addressable byte capacity across every
// channel.
func (o Organization) TotalCapacityBytes() uint64 {
	return uint64(o.NumChannels) * o.ChannelCapacityBytes()
}
