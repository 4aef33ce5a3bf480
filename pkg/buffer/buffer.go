// Package buffer provides the pre-allocated sample storage shared by all
// sampling threads.
//
// The storage is one flat []uint64. Each thread owns one contiguous region and
// is the only writer of it for the whole run, so no locking or atomics are
// needed on the hot path. Regions are padded to a cache line so neighbouring
// threads never write the same line.
package buffer

import (
	"fmt"
	"math"
)

// CacheLineWords is the number of uint64 cells in a 64-byte cache line.
const CacheLineWords = 8

// Buffer is the process-owned sample store.
type Buffer struct {
	data       []uint64
	threads    int
	samples    int
	stride     int
	regionSize int
}

// New allocates storage for threads regions of samples samples each, where
// every sample takes stride cells.
func New(threads, samples, stride int) (*Buffer, error) {
	if threads < 1 {
		return nil, fmt.Errorf("cannot allocate buffer: thread count %d < 1", threads)
	}
	if samples < 1 {
		return nil, fmt.Errorf("cannot allocate buffer: sample count %d < 1", samples)
	}
	if stride < 1 {
		return nil, fmt.Errorf("cannot allocate buffer: stride %d < 1", stride)
	}

	cells := samples * stride
	if cells/stride != samples {
		return nil, fmt.Errorf("cannot allocate buffer: %d samples x %d fields overflows", samples, stride)
	}
	regionSize := roundUp(cells, CacheLineWords)
	if regionSize > math.MaxInt/threads {
		return nil, fmt.Errorf("cannot allocate buffer: %d regions of %d cells overflows", threads, regionSize)
	}

	return &Buffer{
		data:       make([]uint64, threads*regionSize),
		threads:    threads,
		samples:    samples,
		stride:     stride,
		regionSize: regionSize,
	}, nil
}

func roundUp(n, m int) int {
	return (n + m - 1) / m * m
}

// Threads returns the number of regions.
func (b *Buffer) Threads() int { return b.threads }

// Samples returns the number of samples per region.
func (b *Buffer) Samples() int { return b.samples }

// Stride returns the number of cells per sample.
func (b *Buffer) Stride() int { return b.stride }

// RegionSize returns the distance in cells between the starts of adjacent
// regions, padding included.
func (b *Buffer) RegionSize() int { return b.regionSize }

// Region is the write handle given to one sampling thread.
type Region struct {
	// Thread is the owning thread index.
	Thread int
	// Base is the offset of the region's first cell in the buffer.
	Base int

	stride int
	cells  []uint64
}

// Region returns the write handle for thread i. The returned slice has its
// capacity clipped to the region, so writes cannot reach a neighbour.
func (b *Buffer) Region(i int) Region {
	if i < 0 || i >= b.threads {
		panic(fmt.Sprintf("buffer: region %d out of range [0, %d)", i, b.threads))
	}
	base := i * b.regionSize
	end := base + b.samples*b.stride
	return Region{
		Thread: i,
		Base:   base,
		stride: b.stride,
		cells:  b.data[base:end:end],
	}
}

// Samples returns the number of samples the region holds.
func (r Region) Samples() int { return len(r.cells) / r.stride }

// Stride returns the number of cells per sample.
func (r Region) Stride() int { return r.stride }

// Cells exposes the raw storage for the sampling loop. Sample i occupies
// cells [i*Stride, (i+1)*Stride).
func (r Region) Cells() []uint64 { return r.cells }

// Series is a read-only, ordered view of one thread's samples.
type Series struct {
	stride int
	cells  []uint64
}

// Series returns the read-only view of thread i's samples.
func (b *Buffer) Series(i int) Series {
	r := b.Region(i)
	return Series{stride: r.stride, cells: r.cells}
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.cells) / s.stride }

// Stride returns the number of fields per sample.
func (s Series) Stride() int { return s.stride }

// Field returns field f of sample i.
func (s Series) Field(i, f int) uint64 {
	return s.cells[i*s.stride+f]
}
