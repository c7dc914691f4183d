package timing

// Preset returns the default timing parameters for a named technology at a
// given data rate. Values are transcribed from the JEDEC-derived presets in
// the reference implementation (timing_presets namespace); they are data,
// not behavior, kept as external inputs to this package rather than baked
// into the controller itself.
func Preset(technology string, speedMTs uint32) Params {
	switch technology {
	case "LPDDR5":
		return lpddr5(speedMTs)
	case "LPDDR5X":
		return lpddr5x(speedMTs)
	case "HBM3", "HBM3E":
		return hbm3(speedMTs)
	case "GDDR7":
		return gddr7(speedMTs)
	case "DDR5":
		return ddr5(speedMTs)
	default:
		return ideal()
	}
}

// ideal returns permissive, round-number timing suitable for functional
// testing without protocol realism (Technology IDEAL).
func ideal() Params {
	return Params{
		TRCD: 14, TRP: 14, TRAS: 28, TRC: 42, TCL: 14, TWL: 8, TWR: 24, TRTP: 6,
		TRRDL: 6, TRRDS: 4, TCCDL: 8, TCCDS: 4, TFAW: 24,
		TWTRL: 10, TWTRS: 4, TRTW: 14, TBurst: 8,
		TRFC: 280, TRFCpb: 90, TRFCsb: 90, TREFI: 3900,
		TCKE: 5, TXP: 6, TXS: 216, TMRD: 8, TMOD: 15,
	}
}

// lpddr5 mirrors LPDDR5Timing::from_speed in the reference implementation.
func lpddr5(speedMTs uint32) Params {
	t := ideal()

	switch speedMTs {
	case 7500:
		t.TRCD, t.TRP, t.TRAS, t.TRC = 21, 21, 49, 70
		t.TCL, t.TWL, t.TWR, t.TRTP = 20, 10, 40, 14
		t.TRRDL, t.TRRDS, t.TCCDL, t.TCCDS = 9, 5, 9, 5
		t.TFAW = 37
		t.TWTRL, t.TWTRS, t.TRTW = 19, 9, 21
		t.TBurst = 8
		t.TRFC, t.TRFCpb, t.TREFI = 280, 90, 3900
	case 8533:
		t.TRCD, t.TRP, t.TRAS, t.TRC = 24, 24, 56, 80
		t.TCL, t.TWL, t.TWR, t.TRTP = 22, 11, 45, 16
		t.TRRDL, t.TRRDS, t.TCCDL, t.TCCDS = 11, 5, 11, 5
		t.TFAW = 43
		t.TWTRL, t.TWTRS, t.TRTW = 22, 11, 24
		t.TBurst = 8
		t.TRFC, t.TRFCpb, t.TREFI = 280, 90, 3900
	default: // 6400 is the canonical LPDDR5-6400 preset
		t.TRCD, t.TRP, t.TRAS, t.TRC = 18, 18, 42, 60
		t.TCL, t.TWL, t.TWR, t.TRTP = 17, 8, 34, 12
		t.TRRDL, t.TRRDS, t.TCCDL, t.TCCDS = 8, 4, 8, 4
		t.TFAW = 32
		t.TWTRL, t.TWTRS, t.TRTW = 16, 8, 18
		t.TBurst = 8
		t.TRFC, t.TRFCpb, t.TREFI = 280, 90, 3900
	}

	return t
}

// lpddr5x starts from the LPDDR5-6400 preset and replaces its core row and
// column timings (tRCD, tRP, tRAS, tRC, tCL, tWL, tWR, tRTP) with the
// LPDDR5-8533 values; every other field keeps its 6400 value, and speedMTs
// is ignored.
func lpddr5x(speedMTs uint32) Params {
	t := lpddr5(6400)
	t.TRCD, t.TRP, t.TRAS, t.TRC = 24, 24, 56, 80
	t.TCL, t.TWL, t.TWR, t.TRTP = 22, 11, 45, 16
	_ = speedMTs
	return t
}

// hbm3 mirrors the hbm3_5600 preset: short bursts, aggressive refresh
// interval driven by higher stack temperatures.
func hbm3(speedMTs uint32) Params {
	_ = speedMTs
	return Params{
		TRCD: 14, TRP: 14, TRAS: 28, TRC: 42, TCL: 14, TWL: 4, TWR: 16, TRTP: 4,
		TRRDL: 4, TRRDS: 4, TCCDL: 4, TCCDS: 2, TFAW: 16,
		TWTRL: 8, TWTRS: 4, TRTW: 14, TBurst: 4,
		TRFC: 280, TRFCpb: 90, TRFCsb: 90, TREFI: 1950,
		TCKE: 5, TXP: 6, TXS: 216, TMRD: 8, TMOD: 15,
	}
}

// gddr7 mirrors the gddr7_32000 preset.
func gddr7(speedMTs uint32) Params {
	_ = speedMTs
	return Params{
		TRCD: 20, TRP: 20, TRAS: 46, TRC: 66, TCL: 20, TWL: 10, TWR: 28, TRTP: 10,
		TRRDL: 6, TRRDS: 4, TCCDL: 4, TCCDS: 2, TFAW: 24,
		TWTRL: 12, TWTRS: 6, TRTW: 16, TBurst: 8,
		TRFC: 350, TRFCpb: 350, TRFCsb: 350, TREFI: 1950,
		TCKE: 5, TXP: 6, TXS: 216, TMRD: 8, TMOD: 15,
	}
}

// ddr5 is not covered by the reference implementation's preset table; its
// values are the IDEAL defaults with a DDR5 same-bank refresh time (tRFCsb);
// tBurst stays at the IDEAL value of 8.
func ddr5(speedMTs uint32) Params {
	_ = speedMTs
	t := ideal()
	t.TRFCsb = 130
	t.TBurst = 8
	return t
}

// DefaultOrganization returns a representative single-channel, single-rank,
// four bank-group organization, suitable as a builder default.
func DefaultOrganization() Organization {
	return Organization{
		NumChannels:       1,
		RanksPerChannel:   1,
		BankGroupsPerRank: 4,
		BanksPerBankGroup: 4,
		RowsPerBank:       65536,
		ColumnsPerRow:     1024,
		DeviceWidth:       16,
		DevicesPerRank:    1,
		BurstLength:       16,
	}
}
