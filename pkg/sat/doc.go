// Package sat computes summed-area tables over multi-region, multi-layer,
// possibly three dimensional images.
//
// A summed-area table stores at every texel the sum of all texels of the
// rectangle spanned by the table origin and that texel, so the sum or mean
// of any axis aligned rectangle is available from four lookups.
//
// # Pipeline
//
// One call to [Filter.Execute] runs:
//
//  1. validation of the [State] (nothing is written on failure)
//  2. decode of every input region into the caller's scratch buffer
//  3. per region: scan, optional normalization, encode into the output
//
// Integer input formats accumulate in uint64, all other formats in float64.
// The scratch buffer must hold [RequiredScratchByteSize] bytes; [NewScratch]
// allocates one of the right size and alignment.
//
// # Origin
//
// With [OriginTopLeft] (the default) the value at (x, y) covers memory rows
// 0..y. With [OriginBottomLeft] rows are accumulated from the last memory
// row upward, so the value at (x, y) covers rows y..height-1.
//
// # Slice totals
//
// Every depth slice of every layer of every region yields its inclusive
// grand total in [Result.Totals], independent of the mode and of
// normalization.
package sat
