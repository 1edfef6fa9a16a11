package scanner

// cascadeFind runs the tiered marker search from §4.A: region history first,
// then committed regions up to heapRegionMaxSize, then every remaining
// region, falling through to the next tier only when the current one yields
// no candidate whose visible max SEQ exceeds minSeq. The winner within a
// tier is the candidate with the highest max SEQ.
func (s *Scanner) cascadeFind(minSeq int) (addr uintptr, maxSeq int, lines []bufferLine, found bool) {
	if addr, maxSeq, lines, found = s.scanCandidates(s.history.snapshot(), minSeq); found {
		return
	}

	var heapAddrs, restAddrs []uintptr
	for _, r := range s.regions {
		if r.SizeBytes <= heapRegionMaxSize {
			heapAddrs = append(heapAddrs, r.BaseAddress)
		} else {
			restAddrs = append(restAddrs, r.BaseAddress)
		}
	}

	if addr, maxSeq, lines, found = s.scanCandidates(heapAddrs, minSeq); found {
		return
	}
	return s.scanCandidates(restAddrs, minSeq)
}

// rescanHistoryThenHeap re-probes the cheap tiers only (history, then heap
// regions) to check whether a frozen marker has relocated. It does not fall
// through to a full scan; a truly lost marker is handled by the staleness
// ladder in handleMarkerGone instead.
func (s *Scanner) rescanHistoryThenHeap() (addr uintptr, maxSeq int, lines []bufferLine, found bool) {
	if addr, maxSeq, lines, found = s.scanCandidates(s.history.snapshot(), 0); found {
		return
	}
	var heapAddrs []uintptr
	for _, r := range s.regions {
		if r.SizeBytes <= heapRegionMaxSize {
			heapAddrs = append(heapAddrs, r.BaseAddress)
		}
	}
	return s.scanCandidates(heapAddrs, 0)
}

// scanCandidates reads each address via the reader, decodes it as a buffer
// block, and returns the candidate with the highest max SEQ among those
// exceeding minSeq.
func (s *Scanner) scanCandidates(addrs []uintptr, minSeq int) (winAddr uintptr, winMaxSeq int, winLines []bufferLine, found bool) {
	for _, addr := range addrs {
		buf := make([]byte, maxProbeBytes)
		n, err := s.reader.ReadAt(addr, buf)
		if err != nil || n == 0 {
			continue
		}
		lines, ok := decodeBuffer(buf[:n])
		if !ok {
			continue
		}
		m := maxSeqOf(lines)
		if m <= minSeq {
			continue
		}
		if !found || m > winMaxSeq {
			winAddr, winMaxSeq, winLines, found = addr, m, lines, true
		}
	}
	return
}
