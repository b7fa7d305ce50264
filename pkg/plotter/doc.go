/*
Package plotter is the one-shot bulk generator that fills a plot with
encoded pieces 0..pieceCount, derived from a genesis piece and a
farmer's identity hash, under one initial salt.

Encoding is CPU-bound and embarrassingly parallel: Run splits the
requested range into fixed-size batches and encodes each batch across a
worker pool sized to runtime.GOMAXPROCS, so plotting saturates every
core while still bounding memory to one batch's worth of pieces rather
than the whole plot. Run is idempotent — if the plot already reports
IsEmpty() == false, it returns immediately without touching the plot.
*/
package plotter
