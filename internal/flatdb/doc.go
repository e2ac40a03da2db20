// Package flatdb provides a generic, concurrent-safe record store backed by a
// single flat text file.
//
// # Overview
//
// The package centers around [Table], a container bound to one file, one
// [Codec] and one [Schema]. The file is the only source of truth: every read
// parses it front to back, inserts append one line, and updates or deletes
// rewrite the whole file. There is no index and no transaction log.
//
// # File Format
//
// One line is one record. [DelimitedCodec] writes a header row naming the
// canonical columns followed by delimited rows; [JSONLinesCodec] writes one
// JSON object per line without a header. Rows are decoded positionally (or by
// key for JSON lines), padded or truncated to the canonical column count and
// passed through [Schema.Normalize], so every row returned by a Table has all
// columns populated with well-typed values.
//
// # Concurrency
//
// A Table holds a read-write mutex for the duration of each operation, so a
// read-modify-write cycle (update, delete) is never interleaved with another
// writer in the same process. On Unix an advisory lock on a sidecar
// "<file>.lock" extends this to other processes sharing the file.
//
// # Durability
//
// Full rewrites go to a temporary file in the same directory which is synced
// and renamed over the original, so a crash leaves either the old or the new
// content. Appends are a single write to a file opened with O_APPEND.
package flatdb
