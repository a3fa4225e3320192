// Package utils holds small helpers shared by the CLI entrypoint.
package utils

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// DeferredWriter buffers writes until Flush is called. It is used to hold log
// output while the TUI owns the terminal.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends p to the buffer.
func (w *DeferredWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// Flush writes the buffered output to out line by line and resets the buffer.
// Each line is written separately so structured writers see whole records.
func (w *DeferredWriter) Flush(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	scanner := bufio.NewScanner(&w.buf)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := make([]byte, 0, len(scanner.Bytes())+1)
		line = append(line, scanner.Bytes()...)
		line = append(line, '\n')
		if _, err := out.Write(line); err != nil {
			return err
		}
	}
	w.buf.Reset()
	return scanner.Err()
}
