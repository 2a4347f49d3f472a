// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/logger"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/internal/workers"
	"github.com/ostafen/raidrescue/pkg/pbar"
	"github.com/ostafen/raidrescue/pkg/util/format"
	osutils "github.com/ostafen/raidrescue/pkg/util/os"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// session gathers what every command needs: resolved configuration, the
// console logger, the detailed log file and the worker pool size.
type session struct {
	cfg     *viper.Viper
	out     io.Writer
	console *logger.Logger
	log     *slog.Logger
	logFile *os.File
	workers int
	ranges  raid.PageRanges
	images  image.Options
}

func newSession(cmd *cobra.Command, cfg *viper.Viper) (*session, error) {
	level := logger.LevelFor(cfg.GetBool("verbose"))

	log, logFile, err := setupLogger(cfg.GetString("log-file"), level.Slog())
	if err != nil {
		return nil, err
	}

	ranges, err := raid.ParsePageRanges(cfg.GetString("ranges"))
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	return &session{
		cfg:     cfg,
		out:     cmd.OutOrStdout(),
		console: logger.New(cmd.ErrOrStderr(), level),
		log:     log,
		logFile: logFile,
		workers: workers.Size(cfg.GetInt("workers")),
		ranges:  ranges,
		images:  image.Options{Mmap: cfg.GetBool("mmap")},
	}, nil
}

func (s *session) Close() error {
	if s.logFile == nil {
		return nil
	}
	return s.logFile.Close()
}

// openImages expands the arguments and opens every image found.
func (s *session) openImages(args []string, pattern fs.AccessPattern) ([]*image.File, error) {
	paths, err := osutils.ListFiles(args...)
	if err != nil {
		return nil, errs.Configf("%v", err)
	}
	if len(paths) == 0 {
		return nil, errs.Configf("no image given")
	}

	opts := s.images
	opts.Pattern = pattern

	files, err := image.OpenAll(paths, opts)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		s.console.Debugf("Opened %s (%s)", f.Path, format.FormatBytes(f.Size))
		s.log.Debug("image opened", "path", f.Path, "size", f.Size)
	}
	return files, nil
}

func (s *session) pageSize() (int64, error) {
	str := s.cfg.GetString("page-size")
	if str == "" || str == "0" {
		return 0, errs.Configf("--page-size is required")
	}

	size, err := format.ParseBytes(str)
	if err != nil {
		return 0, errs.Configf("%v", err)
	}
	if err := raid.ValidatePageSize(size); err != nil {
		return 0, fmt.Errorf("%w (sizes such as 64kB are decimal, use 64k or 64KiB)", err)
	}
	return size, nil
}

func (s *session) layout() (raid.Layout, error) {
	name := s.cfg.GetString("layout")
	if name == "" {
		return raid.LeftSymmetric, nil
	}
	return raid.ParseLayout(name)
}

func (s *session) disks() (int, error) {
	n := s.cfg.GetInt("disks")
	if n < 3 {
		return 0, errs.Configf("--disks must be at least 3, got %d", n)
	}
	return n, nil
}

// progressBar renders on stderr, only when it is a terminal.
func (s *session) progressBar(description string, total int64, bytes bool) *pbar.ProgressBar {
	return pbar.New(os.Stderr, total, pbar.Options{
		Description: description,
		Bytes:       bytes,
		Hidden:      !term.IsTerminal(int(os.Stderr.Fd())),
	})
}

// setupLogger initializes a new slog.Logger that writes to a specified file or discards output.
// - logFilePath: The full path to the log file. If empty, logs will be discarded (file logging disabled).
// - minLevel: The minimum log level to write.
// It returns the logger instance and the *os.File, which will be nil if logging to file is disabled.
// The returned *os.File (if not nil) should be closed by the caller.
func setupLogger(logFilePath string, minLevel slog.Level) (*slog.Logger, *os.File, error) {
	if logFilePath == "" {
		return slog.New(slog.DiscardHandler), nil, nil
	}

	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: true,
	})
	return slog.New(handler), f, nil
}
