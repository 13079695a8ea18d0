// Package flash implements the non-volatile configuration store.
package flash

// The store manages a single 8-byte phrase, the minimum program/erase
// granularity of the device. Variables of 1, 2 or 4 bytes are allocated
// first-fit out of the phrase and never reclaimed for the life of the
// image. Because the device can only clear bits, every write reads the
// whole phrase, mutates the target sub-range in memory, erases the
// containing sector and programs the modified phrase back. Erased
// storage reads as all ones.
