// Package pool implements a size-bounded in-memory object pool that
// recycles fixed-shape buffers (byte slices, int32 slices, and so on) by
// size class rather than allocating fresh ones on every use.
//
// A Pool keeps recently-returned values in a GroupedLinkedMap bucketed by
// their size class (Key) and evicts values from the least-recently-touched
// bucket once the pool's total byte footprint exceeds its configured
// maximum. Get
// returns a recycled value for an exact size-class match if one is
// available, or allocates a fresh one via the pool's factory.
package pool
