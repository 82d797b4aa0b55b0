package downloader

// Plan splits [0, totalSize) into at most connections contiguous ranges of
// ceil(totalSize/connections) bytes, the last one absorbing the remainder.
// Fewer ranges than requested are returned when the nominal size already
// covers the resource, so callers must use len of the result.
func Plan(totalSize int64, connections int) ([]RangeSpec, error) {
	if connections < 1 {
		return nil, ErrInvalidConnections
	}
	if totalSize < 0 {
		return nil, ErrInvalidSize
	}
	if totalSize == 0 {
		return []RangeSpec{{Index: 0, Start: 0, End: -1}}, nil
	}

	n := int64(connections)
	nominal := (totalSize + n - 1) / n

	specs := make([]RangeSpec, 0, connections)
	for i := int64(0); i < n; i++ {
		start := i * nominal
		if start >= totalSize {
			break
		}
		end := min(start+nominal-1, totalSize-1)
		specs = append(specs, RangeSpec{Index: int(i), Start: start, End: end})
	}
	return specs, nil
}
