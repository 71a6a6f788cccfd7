package blockstore

import "os"

// file is the byte-oriented file handle this store's I/O is built on:
// positioned reads, sequential appends, stat, sync, close.
type file interface {
	ReadAt(b []byte, off int64) (int, error)
	Write(b []byte) (int, error)
	Stat() (os.FileInfo, error)
	Sync() error
	Close() error
}

// fileAPI is the file-level surface this store's components use:
// open/stat/unlink/mkdir/exists/readdir/truncate. osFileAPI is the
// production implementation; tests may substitute a fake to exercise
// torn-write and I/O-error paths without touching a real filesystem.
type fileAPI interface {
	OpenAppend(path string) (file, error)
	OpenRead(path string) (file, error)
	Stat(path string) (os.FileInfo, error)
	Unlink(path string) error
	Mkdir(path string) error
	Exists(path string) (bool, error)
	ReadDir(dir string) ([]os.DirEntry, error)
	Truncate(path string, size int64) error
}

// osFileAPI implements fileAPI directly on the os package.
type osFileAPI struct{}

func (osFileAPI) OpenAppend(path string) (file, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, upstreamIOErrorf("open append %s: %w", path, err)
	}
	return f, nil
}

func (osFileAPI) OpenRead(path string) (file, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, upstreamIOErrorf("open read %s: %w", path, err)
	}
	return f, nil
}

func (osFileAPI) Stat(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, upstreamIOErrorf("stat %s: %w", path, err)
	}
	return fi, nil
}

func (osFileAPI) Unlink(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return upstreamIOErrorf("unlink %s: %w", path, err)
	}
	return nil
}

func (osFileAPI) Mkdir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return upstreamIOErrorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (osFileAPI) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, upstreamIOErrorf("exists %s: %w", path, err)
}

func (osFileAPI) ReadDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, upstreamIOErrorf("readdir %s: %w", dir, err)
	}
	return entries, nil
}

func (osFileAPI) Truncate(path string, size int64) error {
	if err := os.Truncate(path, size); err != nil {
		return upstreamIOErrorf("truncate %s: %w", path, err)
	}
	return nil
}
