package sink

import (
	"fmt"

	"github.com/retroenv/retroblaze/internal/extractor"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const tableSchema = `
CREATE TABLE IF NOT EXISTS functions (
	addr   INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	size   INTEGER NOT NULL,
	score  INTEGER NOT NULL,
	ends   INTEGER NOT NULL,
	arch   TEXT,
	source TEXT
);
CREATE TABLE IF NOT EXISTS blocks (
	function_addr INTEGER NOT NULL REFERENCES functions(addr) ON DELETE CASCADE,
	start         INTEGER NOT NULL,
	size          INTEGER NOT NULL,
	jump          INTEGER,
	fail          INTEGER,
	kind          TEXT NOT NULL,
	score         INTEGER NOT NULL,
	PRIMARY KEY (function_addr, start)
);
`

// TableWriter inserts functions into a persistent sqlite function table.
type TableWriter struct {
	conn   *sqlite.Conn
	opts   Options
	fnStmt *sqlite.Stmt
	bbStmt *sqlite.Stmt
}

// OpenTable opens or creates the database at path.
func OpenTable(path string, opts Options) (*TableWriter, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	t := &TableWriter{
		conn: conn,
		opts: opts,
	}
	if err := t.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return t, nil
}

func (t *TableWriter) init() error {
	if err := sqlitex.ExecuteTransient(t.conn, "PRAGMA foreign_keys = ON", nil); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := sqlitex.ExecuteScript(t.conn, tableSchema, nil); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	// rows of an earlier run of the same input are replaced by this run
	err := sqlitex.Execute(t.conn, `DELETE FROM functions WHERE COALESCE(source, '') = ? AND COALESCE(arch, '') = ?`, &sqlitex.ExecOptions{
		Args: []any{t.opts.Title, t.opts.Arch},
	})
	if err != nil {
		return fmt.Errorf("clear previous run: %w", err)
	}

	t.fnStmt, err = t.conn.Prepare(`INSERT OR REPLACE INTO functions (addr, name, size, score, ends, arch, source) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare function insert: %w", err)
	}
	t.bbStmt, err = t.conn.Prepare(`INSERT OR REPLACE INTO blocks (function_addr, start, size, jump, fail, kind, score) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare block insert: %w", err)
	}
	return nil
}

// Emit inserts the function and its blocks in one transaction.
func (t *TableWriter) Emit(fn *extractor.Function) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(t.conn)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer endFn(&err)

	if err = t.insertFunction(fn); err != nil {
		return err
	}
	for i := range fn.Blocks {
		if err = t.insertBlock(fn, i); err != nil {
			return err
		}
	}
	return nil
}

func (t *TableWriter) insertFunction(fn *extractor.Function) error {
	stmt := t.fnStmt
	stmt.BindInt64(1, int64(fn.Addr))
	stmt.BindText(2, fn.Name(t.opts.Prefix))
	stmt.BindInt64(3, int64(fn.Size))
	stmt.BindInt64(4, int64(fn.Score))
	stmt.BindInt64(5, int64(fn.Ends))
	bindTextOrNull(stmt, 6, t.opts.Arch)
	bindTextOrNull(stmt, 7, t.opts.Title)

	_, err := stmt.Step()
	_ = stmt.Reset()
	if err != nil {
		return fmt.Errorf("insert function 0x%x: %w", uint64(fn.Addr), err)
	}
	return nil
}

func (t *TableWriter) insertBlock(fn *extractor.Function, i int) error {
	b := &fn.Blocks[i]
	stmt := t.bbStmt
	stmt.BindInt64(1, int64(fn.Addr))
	stmt.BindInt64(2, int64(b.Start))
	stmt.BindInt64(3, b.Size())
	if addr, ok := b.Jump.Get(); ok {
		stmt.BindInt64(4, int64(addr))
	} else {
		stmt.BindNull(4)
	}
	if addr, ok := b.Fail.Get(); ok {
		stmt.BindInt64(5, int64(addr))
	} else {
		stmt.BindNull(5)
	}
	stmt.BindText(6, b.Kind.String())
	stmt.BindInt64(7, int64(b.Score))

	_, err := stmt.Step()
	_ = stmt.Reset()
	if err != nil {
		return fmt.Errorf("insert block 0x%x: %w", uint64(b.Start), err)
	}
	return nil
}

// Close releases the prepared statements and closes the database.
func (t *TableWriter) Close() error {
	if t.fnStmt != nil {
		_ = t.fnStmt.Finalize()
	}
	if t.bbStmt != nil {
		_ = t.bbStmt.Finalize()
	}
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
		return
	}
	stmt.BindText(param, val)
}
