// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build cgo

package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"vmops.dev/lab/resultdb"
)

func init() {
	resultdb.RegisterOpenHook("sqlite3", func(db *sql.DB) error {
		// Pragmas are per connection, and an in-memory database
		// exists only on the connection that created it.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return err
		}
		return nil
	})
}
