package storage

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const writerBufferSize = 64 * 1024

// FileName returns {league}-{category}-{region}-{queueType}-{date}.json
func FileName(info RunInfo, category Category) string {
	return strings.Join([]string{info.League, string(category), info.Region, info.QueueType, info.Date}, "-") + ".json"
}

type categoryFile struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	count  int
}

// FileSink writes one newline-delimited "{id}\t{json}" file per category.
// Files are created by NewFileSink, appended in traversal order and closed once.
type FileSink struct {
	dir   string
	files map[Category]*categoryFile
}

// NewFileSink creates the output directory and opens all four category files.
func NewFileSink(dir string, info RunInfo) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", dir)
	}

	s := &FileSink{dir: dir, files: make(map[Category]*categoryFile, len(Categories))}
	for _, category := range Categories {
		path := filepath.Join(dir, FileName(info, category))
		file, err := os.Create(path)
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "create %s", path)
		}
		s.files[category] = &categoryFile{
			path:   path,
			file:   file,
			writer: bufio.NewWriterSize(file, writerBufferSize),
		}
	}
	return s, nil
}

// Write appends one record line. Newlines inside the payload are stripped so
// every record stays on a single line.
func (s *FileSink) Write(rec Record) error {
	cf, ok := s.files[rec.Category]
	if !ok {
		return errors.Newf("unknown record category %q", rec.Category)
	}
	if strings.ContainsAny(rec.Key, "\t\n") {
		return errors.Newf("record key %q contains a separator", rec.Key)
	}

	payload := rec.Payload
	if bytes.ContainsAny(payload, "\r\n") {
		payload = bytes.ReplaceAll(bytes.ReplaceAll(payload, []byte("\r"), nil), []byte("\n"), nil)
	}

	if _, err := cf.writer.WriteString(rec.Key); err != nil {
		return errors.Wrap(err, "write record key")
	}
	if err := cf.writer.WriteByte('\t'); err != nil {
		return errors.Wrap(err, "write separator")
	}
	if _, err := cf.writer.Write(payload); err != nil {
		return errors.Wrap(err, "write record payload")
	}
	if err := cf.writer.WriteByte('\n'); err != nil {
		return errors.Wrap(err, "write newline")
	}
	cf.count++
	return nil
}

// Commit flushes every category file.
func (s *FileSink) Commit() error {
	for _, category := range Categories {
		if cf := s.files[category]; cf != nil {
			if err := cf.writer.Flush(); err != nil {
				return errors.Wrapf(err, "flush %s", cf.path)
			}
		}
	}
	return nil
}

// Close flushes and closes all files. Safe to call more than once.
func (s *FileSink) Close() error {
	var firstErr error
	for _, category := range Categories {
		cf := s.files[category]
		if cf == nil || cf.file == nil {
			continue
		}
		if err := cf.writer.Flush(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "flush %s", cf.path)
		}
		if err := cf.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close %s", cf.path)
		}
		cf.file = nil
	}
	return firstErr
}

// Paths returns the file path of each category.
func (s *FileSink) Paths() map[Category]string {
	out := make(map[Category]string, len(s.files))
	for category, cf := range s.files {
		out[category] = cf.path
	}
	return out
}

// Counts returns how many records were written per category.
func (s *FileSink) Counts() map[Category]int {
	out := make(map[Category]int, len(s.files))
	for category, cf := range s.files {
		out[category] = cf.count
	}
	return out
}

// Compress gzips a closed output file next to itself and removes the source file.
// It returns the path of the archive.
func Compress(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	archive := path + ".gz"
	dst, err := os.Create(archive)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	gzWriter.Name = filepath.Base(path)
	if _, err := io.Copy(gzWriter, src); err != nil {
		return "", errors.Wrapf(err, "compress %s", path)
	}
	if err := gzWriter.Close(); err != nil {
		return "", err
	}

	src.Close()
	if err := os.Remove(path); err != nil {
		return "", err
	}
	return archive, nil
}
