// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bundlerepo/bundlerepo/pkg/version"
)

// CacheHeader is the first line of every cache file.
const CacheHeader = "# bundlerepo cache v1"

const fieldSep = ';'

var (
	// ErrCacheHeader is returned when a cache file does not start with CacheHeader.
	ErrCacheHeader = errors.New("unrecognized cache header")
	// ErrCacheLine is returned for a line that cannot be decoded.
	ErrCacheLine = errors.New("malformed cache line")
)

// EncodeRecord renders a record as one cache line (without the newline).
//
// Fields appear in the order identifier, version, patch flag, modification
// time (Unix nanoseconds), size, search root, path. The last two are quoted
// with strconv.Quote so separators, quotes and newlines inside paths survive.
func EncodeRecord(r Record) string {
	var b strings.Builder
	b.WriteString(r.Identifier)
	b.WriteByte(fieldSep)
	b.WriteString(r.Version.String())
	b.WriteByte(fieldSep)
	if r.Patch {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte(fieldSep)
	b.WriteString(strconv.FormatInt(r.ModifiedAt.UnixNano(), 10))
	b.WriteByte(fieldSep)
	b.WriteString(strconv.FormatInt(r.Size, 10))
	b.WriteByte(fieldSep)
	b.WriteString(strconv.Quote(r.SearchRoot))
	b.WriteByte(fieldSep)
	b.WriteString(strconv.Quote(r.Path))
	return b.String()
}

// DecodeRecord parses a line produced by EncodeRecord.
func DecodeRecord(line string) (Record, error) {
	fields := strings.SplitN(line, string(fieldSep), 6)
	if len(fields) != 6 {
		return Record{}, fmt.Errorf("%w: expected 7 fields", ErrCacheLine)
	}
	if fields[0] == "" {
		return Record{}, fmt.Errorf("%w: empty identifier", ErrCacheLine)
	}

	v, err := version.Parse(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrCacheLine, err)
	}

	var patch bool
	switch fields[2] {
	case "1":
		patch = true
	case "0":
	default:
		return Record{}, fmt.Errorf("%w: patch flag %q", ErrCacheLine, fields[2])
	}

	mtime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: modification time: %w", ErrCacheLine, err)
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil || size < 0 {
		return Record{}, fmt.Errorf("%w: size %q", ErrCacheLine, fields[4])
	}

	root, rest, err := unquoteField(fields[5])
	if err != nil {
		return Record{}, fmt.Errorf("%w: search root: %w", ErrCacheLine, err)
	}
	if rest == "" || rest[0] != fieldSep {
		return Record{}, fmt.Errorf("%w: missing path", ErrCacheLine)
	}
	path, rest, err := unquoteField(rest[1:])
	if err != nil {
		return Record{}, fmt.Errorf("%w: path: %w", ErrCacheLine, err)
	}
	if rest != "" {
		return Record{}, fmt.Errorf("%w: trailing data after path", ErrCacheLine)
	}
	if path == "" {
		return Record{}, fmt.Errorf("%w: empty path", ErrCacheLine)
	}

	return Record{
		Identifier: fields[0],
		Version:    v,
		Patch:      patch,
		SearchRoot: root,
		Path:       path,
		Size:       size,
		ModifiedAt: time.Unix(0, mtime),
	}, nil
}

func unquoteField(s string) (value, rest string, err error) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", err
	}
	value, err = strconv.Unquote(quoted)
	if err != nil {
		return "", "", err
	}
	return value, s[len(quoted):], nil
}

// WriteCache writes the header and one line per record.
func WriteCache(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(CacheHeader + "\n"); err != nil {
		return err
	}
	for _, r := range records {
		if _, err := bw.WriteString(EncodeRecord(r) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadCache decodes a cache stream. Lines that fail to decode are skipped
// and counted; a wrong header fails the whole read.
func ReadCache(r io.Reader) (records []Record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, nil
	}
	if strings.TrimRight(scanner.Text(), "\r") != CacheHeader {
		return nil, 0, ErrCacheHeader
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		rec, err := DecodeRecord(line)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, skipped, err
	}
	return records, skipped, nil
}

// LoadCacheFile reads the cache at path. A missing file is an empty cache,
// reported with an error matching fs.ErrNotExist so callers can tell a cold
// start from a read failure.
func LoadCacheFile(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()
	return ReadCache(f)
}

// SaveCacheFile rewrites the cache at path, creating parent directories.
// The file is written to a temporary sibling and renamed into place.
func SaveCacheFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := WriteCache(f, records); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}
