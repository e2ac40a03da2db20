package flatdb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Row is implemented by the record type stored in a Table.
//
// The type must marshal to a JSON object whose keys are the schema columns.
type Row interface {
	GetID() int64
}

// Table is a record set stored in a single flat file.
//
// Every read parses the file; nothing is cached in memory.
type Table[T Row] struct {
	path   string
	schema *Schema
	codec  Codec
	mu     sync.RWMutex
}

// NewTable opens the table stored at path, creating the parent directory and
// an initial file (header only) if it is missing or empty.
func NewTable[T Row](path string, codec Codec) (*Table[T], error) {
	schema, err := SchemaFromType[T]()
	if err != nil {
		return nil, err
	}
	t := &Table[T]{path: path, schema: schema, codec: codec}
	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) init() error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return &StorageWriteError{Op: "mkdir", Path: dir, Err: err}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock, err := t.lockExclusive()
	if err != nil {
		return err
	}
	defer unlock()
	if fi, err := os.Stat(t.path); err == nil && fi.Size() > 0 {
		return nil
	}
	if err := writeFileAtomic(t.path, t.headerLine(), 0o644); err != nil {
		return &StorageWriteError{Op: "create", Path: t.path, Err: err}
	}
	slog.Info("flatdb: created table", "path", t.path, "format", t.codec.Name())
	return nil
}

// Path returns the backing file path.
func (t *Table[T]) Path() string {
	return t.path
}

// Schema returns the table schema. It must not be modified.
func (t *Table[T]) Schema() *Schema {
	return t.schema
}

// Codec returns the codec the table is bound to.
func (t *Table[T]) Codec() Codec {
	return t.codec
}

// Rows parses the whole file and returns its records in file order.
//
// An unreadable file yields the rows read before the failure, which is logged.
func (t *Table[T]) Rows() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if unlock, err := lockFile(t.path, false); err == nil {
		defer unlock()
	} else {
		slog.Debug("flatdb: reading without file lock", "path", t.path, "err", err)
	}
	rows, err := t.load()
	if err != nil {
		slog.Warn("flatdb: cannot read table", "path", t.path, "err", err)
	}
	return rows
}

// All returns an iterator over the records. Each call re-reads the file.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, row := range t.Rows() {
			if !yield(row) {
				return
			}
		}
	}
}

// Len returns the number of records.
func (t *Table[T]) Len() int {
	return len(t.Rows())
}

// Get returns the first record with the given id.
func (t *Table[T]) Get(id int64) (T, bool) {
	for _, row := range t.Rows() {
		if row.GetID() == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Insert appends row unless its id is not positive or already present.
//
// It returns false without touching the file when the row is rejected.
func (t *Table[T]) Insert(row T) (bool, error) {
	if row.GetID() <= 0 {
		return false, nil
	}
	line, err := t.encode(row)
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	unlock, err := t.lockExclusive()
	if err != nil {
		return false, err
	}
	defer unlock()

	rows, err := t.loadForWrite()
	if err != nil {
		return false, err
	}
	if slices.ContainsFunc(rows, func(r T) bool { return r.GetID() == row.GetID() }) {
		return false, nil
	}
	if err := t.appendLine(line); err != nil {
		return false, &StorageWriteError{Op: "append", Path: t.path, Err: err}
	}
	return true, nil
}

// Update merges patch over the record with the given id and rewrites the file.
//
// Keys of patch are column names; unknown columns are ignored and the key
// column is never changed. When no record matches, it returns false and the
// file is not written.
func (t *Table[T]) Update(id int64, patch map[string]any) (T, bool, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock, err := t.lockExclusive()
	if err != nil {
		return zero, false, err
	}
	defer unlock()

	rows, err := t.loadForWrite()
	if err != nil {
		return zero, false, err
	}
	i := slices.IndexFunc(rows, func(r T) bool { return r.GetID() == id })
	if i < 0 {
		return zero, false, nil
	}
	fields, err := toFields(rows[i])
	if err != nil {
		return zero, false, err
	}
	for k, v := range patch {
		if k == KeyColumn {
			continue
		}
		fields[k] = v
	}
	updated, err := t.fromFields(fields)
	if err != nil {
		return zero, false, err
	}
	rows[i] = updated
	if err := t.replace(rows); err != nil {
		return zero, false, err
	}
	return updated, true, nil
}

// Delete removes every record with the given id and rewrites the file.
//
// When no record matches, it returns false and the file is not written.
func (t *Table[T]) Delete(id int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock, err := t.lockExclusive()
	if err != nil {
		return false, err
	}
	defer unlock()

	rows, err := t.loadForWrite()
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(slices.Clone(rows), func(r T) bool { return r.GetID() == id })
	if len(kept) == len(rows) {
		return false, nil
	}
	if err := t.replace(kept); err != nil {
		return false, err
	}
	return true, nil
}

// Replace rewrites the file with the header followed by rows, in order.
func (t *Table[T]) Replace(rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	unlock, err := t.lockExclusive()
	if err != nil {
		return err
	}
	defer unlock()
	return t.replace(rows)
}

func (t *Table[T]) replace(rows []T) error {
	buf := t.headerLine()
	for _, row := range rows {
		line, err := t.encode(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", row.GetID(), err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if err := writeFileAtomic(t.path, buf, 0o644); err != nil {
		return &StorageWriteError{Op: "overwrite", Path: t.path, Err: err}
	}
	return nil
}

// load parses the file. The caller must hold t.mu.
//
// A missing file has no rows. Blank and undecodable lines are skipped. The
// first non-blank line of a format with a header is the header; when it does
// not match the schema it is still read as data if it decodes to a positive
// id, and dropped otherwise. Later lines are kept whatever their id, so a row
// with id 0 is dropped only in that first position. On a read error the rows parsed so far are
// returned with the error.
func (t *Table[T]) load() ([]T, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	header := t.codec.Header(t.schema)
	pendingHeader := header != nil
	var rows []T
	parse := func(lineNo int, line []byte) {
		line = bytes.TrimRight(line, "\r\n")
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, utf8BOM)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			return
		}
		if pendingHeader {
			pendingHeader = false
			if bytes.Equal(bytes.TrimSpace(line), header) {
				return
			}
			if row, err := t.decode(line); err == nil && row.GetID() > 0 {
				slog.Warn("flatdb: header missing, reading first line as data", "path", t.path)
				rows = append(rows, row)
				return
			}
			slog.Warn("flatdb: header differs from schema", "path", t.path, "got", string(line), "want", string(header))
			return
		}
		row, err := t.decode(line)
		if err != nil {
			slog.Warn("flatdb: skipping undecodable line", "path", t.path, "line", lineNo, "err", err)
			return
		}
		rows = append(rows, row)
	}

	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			parse(lineNo, line)
		}
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
	}
}

// loadForWrite parses the file before a mutation. A read failure is returned
// as a StorageWriteError so that nothing is written from a partial view.
func (t *Table[T]) loadForWrite() ([]T, error) {
	rows, err := t.load()
	if err != nil {
		return nil, &StorageWriteError{Op: "read", Path: t.path, Err: err}
	}
	return rows, nil
}

// appendLine appends one encoded record. The caller must hold t.mu.
func (t *Table[T]) appendLine(line []byte) error {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec // G304: table path
	if err != nil {
		return err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	var buf []byte
	if fi.Size() == 0 {
		// The file was truncated behind our back; restore the header.
		buf = t.headerLine()
	} else {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, fi.Size()-1); err != nil {
			_ = f.Close()
			return err
		}
		if last[0] != '\n' {
			buf = append(buf, '\n')
		}
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (t *Table[T]) lockExclusive() (func(), error) {
	unlock, err := lockFile(t.path, true)
	if err != nil {
		return nil, &StorageWriteError{Op: "lock", Path: t.path, Err: err}
	}
	return unlock, nil
}

func (t *Table[T]) headerLine() []byte {
	h := t.codec.Header(t.schema)
	if h == nil {
		return []byte{}
	}
	return append(slices.Clone(h), '\n')
}

func (t *Table[T]) encode(row T) ([]byte, error) {
	fields, err := toFields(row)
	if err != nil {
		return nil, err
	}
	return t.codec.Encode(t.schema, t.schema.Normalize(fields))
}

func (t *Table[T]) decode(line []byte) (T, error) {
	fields, err := t.codec.Decode(t.schema, line)
	if err != nil {
		var zero T
		return zero, err
	}
	return t.fromFields(fields)
}

// FromFields builds a record from column values, applying the same coercion
// as when reading the file. Unknown keys are ignored.
func (t *Table[T]) FromFields(fields map[string]any) (T, error) {
	return t.fromFields(fields)
}

// fromFields normalizes fields and builds a T from them.
func (t *Table[T]) fromFields(fields map[string]any) (T, error) {
	var row T
	b, err := json.Marshal(t.schema.Normalize(fields))
	if err != nil {
		return row, err
	}
	if err := json.Unmarshal(b, &row); err != nil {
		return row, fmt.Errorf("failed to build row: %w", err)
	}
	return row, nil
}

// toFields returns the column values of row keyed by column name.
func toFields[T Row](row T) (map[string]any, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal row: %w", err)
	}
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var fields map[string]any
	if err := d.Decode(&fields); err != nil {
		return nil, fmt.Errorf("row is not an object: %w", err)
	}
	return fields, nil
}
