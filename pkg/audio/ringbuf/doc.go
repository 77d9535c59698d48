// Package ringbuf provides the fixed-capacity byte FIFO that sits between
// a decoder goroutine and an audio device.
//
// Appends wrap at the end of the storage, reads consume from the oldest
// byte. Preconditions (CopyIn within Space, MoveOut within Len) are the
// caller's responsibility and panic when violated:
//
//	rb, _ := ringbuf.New(4096)
//	n := min(len(pcm), rb.Space())
//	rb.CopyIn(pcm[:n])
//	rb.MoveOut(dst[:min(len(dst), rb.Len())])
package ringbuf
