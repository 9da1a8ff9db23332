// Object pools for reducing GC pressure in hot paths
//
// Provides reusable object pools for commonly allocated types:
// - String maps (for command arguments)
// - Byte buffers (for UART wire transfers)
//
// Usage:
//
//	args := pool.GetArgsMap()
//	defer pool.PutArgsMap(args)
//	// use args...
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package pool

import (
	"sync"
	"sync/atomic"
)

var (
	argsMapGets atomic.Uint64
	argsMapNews atomic.Uint64
	byteBufGets atomic.Uint64
	byteBufNews atomic.Uint64
)

// ArgsMap pool - for command argument maps
var argsMapPool = sync.Pool{
	New: func() any {
		argsMapNews.Add(1)
		return make(map[string]string, 8)
	},
}

// GetArgsMap gets a string map from the pool
func GetArgsMap() map[string]string {
	argsMapGets.Add(1)
	return argsMapPool.Get().(map[string]string)
}

// PutArgsMap returns a string map to the pool after clearing it
func PutArgsMap(m map[string]string) {
	if m == nil {
		return
	}
	clear(m)
	argsMapPool.Put(m)
}

// ByteBuffer is a reusable byte slice
type ByteBuffer struct {
	buf []byte
}

var byteBufferPool = sync.Pool{
	New: func() any {
		byteBufNews.Add(1)
		return &ByteBuffer{
			buf: make([]byte, 0, 16), // a stuffed reply frame is 10 bytes
		}
	},
}

// GetByteBuffer gets an empty byte buffer from the pool
func GetByteBuffer() *ByteBuffer {
	byteBufGets.Add(1)
	b := byteBufferPool.Get().(*ByteBuffer)
	b.buf = b.buf[:0]
	return b
}

// PutByteBuffer returns a byte buffer to the pool
func PutByteBuffer(b *ByteBuffer) {
	if b == nil {
		return
	}
	// Don't pool oversized buffers (> 4KB)
	if cap(b.buf) > 4096 {
		return
	}
	byteBufferPool.Put(b)
}

// Bytes returns the buffer's byte slice
func (b *ByteBuffer) Bytes() []byte {
	return b.buf
}

// Write appends bytes to the buffer
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Len returns the buffer length
func (b *ByteBuffer) Len() int {
	return len(b.buf)
}

// Reset clears the buffer
func (b *ByteBuffer) Reset() {
	b.buf = b.buf[:0]
}

// Grow ensures the buffer has capacity for n more bytes
func (b *ByteBuffer) Grow(n int) {
	if cap(b.buf)-len(b.buf) < n {
		newBuf := make([]byte, len(b.buf), cap(b.buf)*2+n)
		copy(newBuf, b.buf)
		b.buf = newBuf
	}
}

// Slice sets the buffer length to n and returns it. The contents are
// whatever the buffer held before.
func (b *ByteBuffer) Slice(n int) []byte {
	b.Reset()
	b.Grow(n)
	b.buf = b.buf[:n]
	return b.buf
}

// PoolStats holds statistics about pool usage
type PoolStats struct {
	ArgsMapGets    uint64
	ArgsMapNews    uint64
	ByteBufferGets uint64
	ByteBufferNews uint64
}

// Stats returns the pool counters. Gets minus News is the number of
// requests served by reuse.
func Stats() PoolStats {
	return PoolStats{
		ArgsMapGets:    argsMapGets.Load(),
		ArgsMapNews:    argsMapNews.Load(),
		ByteBufferGets: byteBufGets.Load(),
		ByteBufferNews: byteBufNews.Load(),
	}
}
