// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resultdb mirrors the vmops result tables in a SQL database.
//
// Every driven session gets a row in Sessions; its throughput records
// hang off that row. Latency summaries are keyed by benchmark and core
// count, like the latency table file, and are replaced on upsert.
package resultdb

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
	"text/template"
	"time"

	"vmops.dev/lab/vmopsfmt"
)

// DB is a high-level interface to a result database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertSession    *sql.Stmt
	insertThroughput *sql.Stmt
	deleteLatency    *sql.Stmt
	insertLatency    *sql.Stmt
	finishSession    *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to configure its connections.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Sessions (
	SessionID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Started BIGINT,
	GitRev VARCHAR(64),
	Platform VARCHAR(64),
	Benchmark VARCHAR(255),
	NCores INT,
	Mode VARCHAR(16),
	Status VARCHAR(255)
);
CREATE TABLE IF NOT EXISTS Throughput (
	SessionID BIGINT UNSIGNED,
	Seq BIGINT UNSIGNED,
	Config VARCHAR(255),
	NCores INT,
	TID INT,
	Ops BIGINT,
	Runtime DOUBLE,
	MemSize BIGINT,
	PageSize VARCHAR(16),
	PRIMARY KEY (SessionID, Seq),
{{if not .sqlite3}}
	Index (Config, NCores),
{{end}}
	FOREIGN KEY (SessionID) REFERENCES Sessions(SessionID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS ThroughputConfig ON Throughput(Config, NCores);
{{end}}
CREATE TABLE IF NOT EXISTS Latency (
	GitRev VARCHAR(64),
	Benchmark VARCHAR(255),
	NCores INT,
	MemSize BIGINT,
	P1 DOUBLE,
	P25 DOUBLE,
	P50 DOUBLE,
	P75 DOUBLE,
	P99 DOUBLE,
	P999 DOUBLE,
	P100 DOUBLE,
	OS VARCHAR(64),
	PRIMARY KEY (Benchmark, NCores)
);
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	for _, s := range []struct {
		stmt **sql.Stmt
		q    string
	}{
		{&db.insertSession, "INSERT INTO Sessions(Started, GitRev, Platform, Benchmark, NCores, Mode, Status) VALUES (?, ?, ?, ?, ?, ?, ?)"},
		{&db.finishSession, "UPDATE Sessions SET Status = ? WHERE SessionID = ?"},
		{&db.insertThroughput, "INSERT INTO Throughput(SessionID, Seq, Config, NCores, TID, Ops, Runtime, MemSize, PageSize) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"},
		{&db.deleteLatency, "DELETE FROM Latency WHERE Benchmark = ? AND NCores = ?"},
		{&db.insertLatency, "INSERT INTO Latency(GitRev, Benchmark, NCores, MemSize, P1, P25, P50, P75, P99, P999, P100, OS) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"},
	} {
		*s.stmt, err = db.sql.Prepare(s.q)
		if err != nil {
			return err
		}
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// SessionInfo describes a driven session.
type SessionInfo struct {
	GitRev    string
	Platform  string
	Benchmark string
	Cores     int
	// Mode is "duration" or "ops".
	Mode string
}

// StatusRunning is the status of a session until Finish is called.
const StatusRunning = "running"

// maxStatus is the width of Sessions.Status.
const maxStatus = 255

// A Session is a row of the Sessions table and the records stored
// under it.
type Session struct {
	ID int64
	// seq is the sequence number of the next throughput record.
	seq int64
	db  *DB
}

// NewSession records the start of a session.
func (db *DB) NewSession(ctx context.Context, info SessionInfo) (*Session, error) {
	res, err := db.insertSession.ExecContext(ctx, now().Unix(), info.GitRev, info.Platform, info.Benchmark, info.Cores, info.Mode, StatusRunning)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, db: db}, nil
}

// InsertThroughput stores recs under s in one transaction.
func (s *Session) InsertThroughput(ctx context.Context, recs []vmopsfmt.ThroughputRecord) (err error) {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	stmt := tx.StmtContext(ctx, s.db.insertThroughput)
	seq := s.seq
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, s.ID, seq, r.Config, r.Cores, r.Thread, r.Ops, r.Runtime, r.MemSize, r.PageSize); err != nil {
			return err
		}
		seq++
	}
	s.seq = seq
	return nil
}

// Finish records the final status of s, such as "ok" or the error
// that ended it.
func (s *Session) Finish(ctx context.Context, status string) error {
	if len(status) > maxStatus {
		status = strings.ToValidUTF8(status[:maxStatus], "")
	}
	_, err := s.db.finishSession.ExecContext(ctx, status, s.ID)
	return err
}

// UpsertLatency stores sum, replacing any summary with the same
// benchmark and core count. It reports whether a row was replaced.
func (db *DB) UpsertLatency(ctx context.Context, sum vmopsfmt.LatencySummary) (replaced bool, err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	res, err := tx.StmtContext(ctx, db.deleteLatency).ExecContext(ctx, sum.Benchmark, sum.Cores)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	_, err = tx.StmtContext(ctx, db.insertLatency).ExecContext(ctx,
		sum.GitRev, sum.Benchmark, sum.Cores, sum.MemSize,
		sum.P1, sum.P25, sum.P50, sum.P75, sum.P99, sum.P999, sum.P100, sum.OS)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Throughput returns the stored throughput records in insertion order.
// If config is not empty, only records of that configuration are
// returned.
func (db *DB) Throughput(ctx context.Context, config string) ([]vmopsfmt.ThroughputRecord, error) {
	q := "SELECT Config, NCores, TID, Ops, Runtime, MemSize, PageSize FROM Throughput"
	var args []any
	if config != "" {
		q += " WHERE Config = ?"
		args = append(args, config)
	}
	q += " ORDER BY SessionID, Seq"
	rows, err := db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vmopsfmt.ThroughputRecord
	for rows.Next() {
		var r vmopsfmt.ThroughputRecord
		if err := rows.Scan(&r.Config, &r.Cores, &r.Thread, &r.Ops, &r.Runtime, &r.MemSize, &r.PageSize); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatencySummaries returns all stored latency summaries ordered by
// benchmark and core count.
func (db *DB) LatencySummaries(ctx context.Context) ([]vmopsfmt.LatencySummary, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT GitRev, Benchmark, NCores, MemSize, P1, P25, P50, P75, P99, P999, P100, OS FROM Latency ORDER BY Benchmark, NCores")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vmopsfmt.LatencySummary
	for rows.Next() {
		var s vmopsfmt.LatencySummary
		if err := rows.Scan(&s.GitRev, &s.Benchmark, &s.Cores, &s.MemSize, &s.P1, &s.P25, &s.P50, &s.P75, &s.P99, &s.P999, &s.P100, &s.OS); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionStatus returns the recorded status of session id.
func (db *DB) SessionStatus(ctx context.Context, id int64) (string, error) {
	var status string
	err := db.sql.QueryRowContext(ctx, "SELECT Status FROM Sessions WHERE SessionID = ?", id).Scan(&status)
	return status, err
}

// CountSessions returns the number of sessions stored in the database.
func (db *DB) CountSessions() (int, error) {
	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Sessions").Scan(&count)
	return count, err
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertSession, db.finishSession, db.insertThroughput, db.deleteLatency, db.insertLatency} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
