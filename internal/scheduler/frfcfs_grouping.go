package scheduler

// frfcfsGroupingScheduler extends FR-FCFS by preferring a row hit that
// matches the kind of the last issued command, reducing bus-turnaround
// stalls (tWTR/tRTW). It also refuses to reorder a row hit ahead of an
// earlier-arrived entry to the same address, since doing so could let a
// read observe a write that has not yet issued or vice versa. Grounded on
// FrFcfsGrpScheduler in the reference scheduler library.
type frfcfsGroupingScheduler struct {
	buffers
	selected uint64
	rowHits  uint64
	grouping uint64
}

func newFRFCFSGrouping(cfg Config) *frfcfsGroupingScheduler {
	return &frfcfsGroupingScheduler{buffers: newBuffers(cfg)}
}

func (s *frfcfsGroupingScheduler) HasSpace(count uint32) bool     { return s.hasSpace(count) }
func (s *frfcfsGroupingScheduler) Store(e Entry)                  { s.store(e) }
func (s *frfcfsGroupingScheduler) Remove(bank uint32, id uint64)  { s.remove(bank, id) }
func (s *frfcfsGroupingScheduler) Occupancy() uint32              { return s.occupancy() }
func (s *frfcfsGroupingScheduler) BufferDepth(bank uint32) uint32 { return s.bufferDepth(bank) }
func (s *frfcfsGroupingScheduler) HasPending(bank uint32, kind Kind) bool {
	return s.hasPending(bank, kind)
}
func (s *frfcfsGroupingScheduler) HasAnyPending() bool { return s.hasAnyPending() }
func (s *frfcfsGroupingScheduler) HasRowHit(bank, row uint32) bool {
	return s.hasRowHit(bank, row)
}

func (s *frfcfsGroupingScheduler) GetNext(bank uint32, openRow uint32, rowOpen bool, lastCmd Kind) (Entry, bool) {
	bucket := s.banks[bank]
	if len(bucket) == 0 {
		return Entry{}, false
	}

	if rowOpen {
		var rowHits []Entry
		for _, e := range bucket {
			if e.Row == openRow {
				rowHits = append(rowHits, e)
			}
		}

		if len(rowHits) > 0 {
			for _, e := range rowHits {
				if e.Kind == lastCmd && !hasAddressHazard(rowHits, e) {
					s.rowHits++
					s.grouping++
					s.selected++
					return e, true
				}
			}

			s.rowHits++
			s.selected++
			return rowHits[0], true
		}
	}

	s.selected++
	return bucket[0], true
}

// hasAddressHazard reports whether an earlier-arrived entry in candidates
// targets the same address as target, which would make it unsafe to
// reorder target ahead of it.
func hasAddressHazard(candidates []Entry, target Entry) bool {
	for _, e := range candidates {
		if e.ID == target.ID {
			break
		}
		if e.Address == target.Address {
			return true
		}
	}
	return false
}

func (s *frfcfsGroupingScheduler) RequestsSelected() uint64  { return s.selected }
func (s *frfcfsGroupingScheduler) RowHitsSelected() uint64   { return s.rowHits }
func (s *frfcfsGroupingScheduler) GroupingDecisions() uint64 { return s.grouping }

func (s *frfcfsGroupingScheduler) Reset() {
	s.reset()
	s.selected = 0
	s.rowHits = 0
	s.grouping = 0
}
