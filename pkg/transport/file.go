package transport

import (
	"context"
	"fmt"
	"os"
)

// FileTransport serves an existing device node or FIFO, the direct
// equivalent of the named pipe a VM exposes for a guest COM port.
type FileTransport struct {
	path string
	file *os.File
}

// NewFile creates a transport over the given path
func NewFile(path string) *FileTransport {
	return &FileTransport{path: path}
}

// Open opens the path read-write. A second Open reopens it.
func (t *FileTransport) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}

	f, err := os.OpenFile(t.path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	t.file = f
	return f, nil
}

// Close closes the file
func (t *FileTransport) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Kind returns the transport name
func (t *FileTransport) Kind() string {
	return "file"
}
