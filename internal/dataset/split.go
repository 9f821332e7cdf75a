package dataset

// MaxChunkRows is the largest row count written as a single chunk.
const MaxChunkRows = 250_000

// ChunkCount returns how many chunks a dataset of n rows is split into
// when no chunk may exceed limit rows. A dataset at or under limit is one chunk.
func ChunkCount(n, limit int) int {
	if n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

// Split partitions d into ChunkCount(d.NumRows(), limit) contiguous chunks
// whose sizes differ by at most one row. Larger chunks come first.
func Split(d *Dataset, limit int) []*Dataset {
	n := d.NumRows()
	k := ChunkCount(n, limit)
	if k == 1 {
		return []*Dataset{d}
	}

	base, extra := n/k, n%k
	chunks := make([]*Dataset, 0, k)
	start := 0
	for i := range k {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, d.Slice(start, start+size))
		start += size
	}
	return chunks
}
