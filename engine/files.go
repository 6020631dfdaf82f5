package engine

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultSuffix = ".gz"

type FileOptions struct {
	Suffix   string
	Delete   bool
	Progress bool
}

type FileResult struct {
	Input  string
	Output string
	Stats  Stats
	Err    error
}

// ProcessFiles compresses or decompresses each file next to itself. A file
// that fails does not stop the others; its partial output is removed.
func (e *Engine) ProcessFiles(ctx context.Context, mode Mode, files []string, fo FileOptions) []FileResult {
	if fo.Suffix == "" {
		fo.Suffix = DefaultSuffix
	}
	results := make([]FileResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			results = append(results, FileResult{Input: file, Err: err})
			continue
		}
		results = append(results, e.processFile(ctx, mode, file, fo))
	}
	return results
}

func (e *Engine) processFile(ctx context.Context, mode Mode, path string, fo FileOptions) FileResult {
	llog := e.log.WithFields(logrus.Fields{"method": "processFile", "file": path})
	res := FileResult{Input: path}

	in, err := os.Open(path)
	if err != nil {
		res.Err = errors.Wrap(err, "unable to open input")
		return res
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		res.Err = errors.Wrap(err, "unable to stat input")
		return res
	}
	if !info.Mode().IsRegular() {
		res.Err = errors.Wrapf(ErrInvalidOptions, "%s is not a regular file", path)
		return res
	}

	if mode == ModeAuto {
		if mode, err = e.sniffFile(in, path, fo.Suffix); err != nil {
			res.Err = err
			return res
		}
		llog.Debugf("auto mode selected %s", mode)
	}

	switch mode {
	case ModeDecompress:
		if !strings.HasSuffix(path, fo.Suffix) || len(path) == len(fo.Suffix) {
			res.Err = errors.Wrapf(ErrInvalidOptions, "%s does not have the %s suffix", path, fo.Suffix)
			return res
		}
		res.Output = strings.TrimSuffix(path, fo.Suffix)
	default:
		if strings.HasSuffix(path, fo.Suffix) {
			res.Err = errors.Wrapf(ErrInvalidOptions, "%s already has the %s suffix", path, fo.Suffix)
			return res
		}
		res.Output = path + fo.Suffix
	}

	out, err := os.OpenFile(res.Output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		res.Err = errors.Wrap(err, "unable to create output")
		return res
	}

	var src io.Reader = in
	if fo.Progress {
		bar := pb.New64(info.Size())
		bar.Set(pb.Bytes, true)
		bar.Start()
		defer bar.Finish()
		src = bar.NewProxyReader(in)
	}

	bw := bufio.NewWriter(out)
	if mode == ModeDecompress {
		res.Stats, err = e.decompress(ctx, src, bw, e.opts.Format)
	} else {
		opts := e.opts
		opts.Name = filepath.Base(path)
		opts.ModTime = info.ModTime()
		res.Stats, err = e.compress(ctx, src, bw, opts)
	}
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(res.Output); rmErr != nil {
			llog.Warnf("unable to remove partial output '%s': %s", res.Output, rmErr)
		}
		res.Err = errors.Wrapf(err, "unable to %s %s", mode, path)
		return res
	}

	if fo.Delete {
		if err := os.Remove(path); err != nil {
			res.Err = errors.Wrap(err, "unable to delete input")
		}
	}
	return res
}

// sniffFile decides the direction for one file in auto mode and rewinds it.
func (e *Engine) sniffFile(f *os.File, path, suffix string) (Mode, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return ModeAuto, errors.Wrap(err, "unable to read input")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ModeAuto, errors.Wrap(err, "unable to rewind input")
	}
	if strings.HasSuffix(path, suffix) && Detect(head[:n], e.opts.Format) {
		return ModeDecompress, nil
	}
	return ModeCompress, nil
}
