package bundle

import (
	"bytes"
	"io"
	"io/fs"
	"time"
)

// memFileInfo is an in-memory fs.FileInfo backing an archives.FileInfo
// entry whose content comes from a []byte already held in process memory
// (manifest JSON, a signature, an SBOM) rather than from disk.
type memFileInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return i.mode }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return false }
func (i memFileInfo) Sys() interface{}   { return nil }

// memFile implements fs.File over an in-memory byte slice, the shape
// archives.FileInfo.Open must return.
type memFile struct {
	info   memFileInfo
	reader *bytes.Reader
}

func newMemFile(name string, data []byte) *memFile {
	return &memFile{
		info:   memFileInfo{name: name, size: int64(len(data)), mode: 0o644},
		reader: bytes.NewReader(data),
	}
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Read(p []byte) (int, error) { return f.reader.Read(p) }
func (f *memFile) Close() error               { return nil }

var _ io.ReadCloser = (*memFile)(nil)
