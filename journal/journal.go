// Package journal remembers files which were already patched, so repeated
// runs over large mod directories could skip them without opening.
package journal

import (
	"fmt"
	"io/fs"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/heyleao/mp-mods-ets2/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path     TEXT PRIMARY KEY,
	size     INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	marker   TEXT NOT NULL,
	status   TEXT NOT NULL,
	run_id   TEXT NOT NULL,
	updated  INTEGER NOT NULL
);`

const upsert = `
INSERT INTO files (path, size, mod_time, marker, status, run_id, updated)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (path) DO UPDATE SET
	size = excluded.size,
	mod_time = excluded.mod_time,
	marker = excluded.marker,
	status = excluded.status,
	run_id = excluded.run_id,
	updated = excluded.updated;`

// Entry is what journal knows about a single file.
type Entry struct {
	Size    int64
	ModTime time.Time
	Marker  string
	Status  common.Status
	RunID   string
	Updated time.Time
}

// Journal is loaded once on Open. Lookup only reads the loaded snapshot and
// could be called from many goroutines, Record must be called from one.
type Journal struct {
	conn    *sqlite.Conn
	marker  string
	entries map[string]Entry
}

// Open opens (creating when necessary) journal database at path. Entries
// recorded for a different marker never match.
func Open(path, marker string) (*Journal, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to open journal %s: %w", common.ErrIO, path, err)
	}
	j := &Journal{conn: conn, marker: marker, entries: make(map[string]Entry)}
	if err := j.load(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: journal %s: %w", common.ErrIO, path, err)
	}
	return j, nil
}

func (j *Journal) load() error {
	if err := sqlitex.ExecuteScript(j.conn, schema, nil); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return sqlitex.Execute(j.conn, `SELECT path, size, mod_time, marker, status, run_id, updated FROM files`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			status, err := common.ParseStatus(stmt.ColumnText(4))
			if err != nil {
				// written by somebody else, treat as unknown
				return nil
			}
			j.entries[stmt.ColumnText(0)] = Entry{
				Size:    stmt.ColumnInt64(1),
				ModTime: time.Unix(0, stmt.ColumnInt64(2)),
				Marker:  stmt.ColumnText(3),
				Status:  status,
				RunID:   stmt.ColumnText(5),
				Updated: time.Unix(stmt.ColumnInt64(6), 0),
			}
			return nil
		}})
}

// Len returns number of entries loaded on Open.
func (j *Journal) Len() int {
	return len(j.entries)
}

// Lookup reports whether file at path is known to carry the marker: it was
// successfully handled before and has not changed since.
func (j *Journal) Lookup(path string, fi fs.FileInfo) (Entry, bool) {
	e, ok := j.entries[path]
	if !ok || !recordable(e.Status) {
		return Entry{}, false
	}
	if e.Marker != j.marker || e.Size != fi.Size() || !e.ModTime.Equal(fi.ModTime()) {
		return Entry{}, false
	}
	return e, true
}

// Record stores outcome for the file, fi must describe file after it was
// processed. Only modified and already-correct outcomes are stored (the
// latter includes fragments without target block, which never get the
// marker), everything else is silently ignored.
func (j *Journal) Record(path string, fi fs.FileInfo, status common.Status, runID string) error {
	if !recordable(status) {
		return nil
	}
	err := sqlitex.Execute(j.conn, upsert, &sqlitex.ExecOptions{
		Args: []any{path, fi.Size(), fi.ModTime().UnixNano(), j.marker, status.String(), runID, time.Now().Unix()},
	})
	if err != nil {
		return fmt.Errorf("%w: unable to record %s: %w", common.ErrIO, path, err)
	}
	return nil
}

func (j *Journal) Close() error {
	if j == nil || j.conn == nil {
		return nil
	}
	conn := j.conn
	j.conn = nil
	return conn.Close()
}

func recordable(s common.Status) bool {
	return s == common.StatusModified || s == common.StatusAlreadyCorrect
}
