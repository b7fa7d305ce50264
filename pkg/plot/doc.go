/*
Package plot is the engine that owns a farmer's plotted pieces: the flat
file of encoded pieces (plot.bin) and the ordered tag index that maps a
piece's tag, under a given salt, back to its index (plot-tags.db).

A Plot is a handle to a single background goroutine that owns the file
and the bbolt database exclusively — every public method sends a typed
request over a channel and waits on a private result channel, so callers
never touch the file or the index directly and never need their own
locking. Reads are served ahead of writes on each iteration of the
worker's loop, since a farmer waiting on a range query is time-sensitive
in a way a plotter filling the file usually isn't.

A commitment is the set of (tag, index) pairs recorded under one salt.
Salts are sharded into separate bbolt buckets so RemoveCommitment is a
single O(1) DeleteBucket rather than a scan-and-delete.
*/
package plot
