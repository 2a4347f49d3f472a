package fs

import (
	"fmt"
	"io"
	"os"
)

func Open(path string) (File, error) {
	return OpenWithPattern(path, Normal)
}

// OpenWithPattern opens path read-only and forwards the access pattern to the
// kernel where supported. A rejected hint is not an error.
func OpenWithPattern(path string, pattern AccessPattern) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	_ = advise(f, pattern)
	return f, nil
}

// Size returns the number of readable bytes of f. Block devices report a zero
// size through Stat, so they are measured by seeking to their end.
func Size(f File) (int64, error) {
	finfo, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if finfo.Mode().IsRegular() || finfo.Size() > 0 {
		return finfo.Size(), nil
	}

	s, ok := f.(io.Seeker)
	if !ok {
		return finfo.Size(), nil
	}
	size, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", finfo.Name(), err)
	}
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
