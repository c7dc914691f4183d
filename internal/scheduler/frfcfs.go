package scheduler

// frfcfsScheduler prioritizes row-buffer hits, falling back to FCFS order
// when the open row has no matching entry. Grounded on FrFcfsScheduler in
// the reference scheduler library.
type frfcfsScheduler struct {
	buffers
	selected uint64
	rowHits  uint64
}

func newFRFCFS(cfg Config) *frfcfsScheduler {
	return &frfcfsScheduler{buffers: newBuffers(cfg)}
}

func (s *frfcfsScheduler) HasSpace(count uint32) bool     { return s.hasSpace(count) }
func (s *frfcfsScheduler) Store(e Entry)                  { s.store(e) }
func (s *frfcfsScheduler) Remove(bank uint32, id uint64)  { s.remove(bank, id) }
func (s *frfcfsScheduler) Occupancy() uint32              { return s.occupancy() }
func (s *frfcfsScheduler) BufferDepth(bank uint32) uint32 { return s.bufferDepth(bank) }
func (s *frfcfsScheduler) HasPending(bank uint32, kind Kind) bool {
	return s.hasPending(bank, kind)
}
func (s *frfcfsScheduler) HasAnyPending() bool         { return s.hasAnyPending() }
func (s *frfcfsScheduler) HasRowHit(bank, row uint32) bool { return s.hasRowHit(bank, row) }

func (s *frfcfsScheduler) GetNext(bank uint32, openRow uint32, rowOpen bool, lastCmd Kind) (Entry, bool) {
	bucket := s.banks[bank]
	if len(bucket) == 0 {
		return Entry{}, false
	}

	if rowOpen {
		for _, e := range bucket {
			if e.Row == openRow {
				s.rowHits++
				s.selected++
				return e, true
			}
		}
	}

	s.selected++
	return bucket[0], true
}

func (s *frfcfsScheduler) RequestsSelected() uint64  { return s.selected }
func (s *frfcfsScheduler) RowHitsSelected() uint64   { return s.rowHits }
func (s *frfcfsScheduler) GroupingDecisions() uint64 { return 0 }

func (s *frfcfsScheduler) Reset() {
	s.reset()
	s.selected = 0
	s.rowHits = 0
}
