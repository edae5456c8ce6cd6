// Package blockbuf turns a continuous multichannel sample stream into fixed
// size, possibly overlapping analysis windows ("blocks").
//
// A Buffer keeps the last blockSize samples in a circular store indexed by
// monotonically increasing stream positions. Every time blockSize samples have
// accumulated since the current window start, the window is emitted as a
// channels × blockSize matrix (oldest sample in column 0) and the start moves
// forward by blockSkip samples:
//
//	blockSize=8, blockSkip=4
//	stream:  0 1 2 3 4 5 6 7 8 9 10 11 ...
//	block 0: [0 ........ 7]
//	block 1:         [4 ........ 11]
//
// Blocks are emitted the moment their last sample arrives, so the store never
// needs more than blockSize slots regardless of how many samples a caller
// pushes at once.
package blockbuf
