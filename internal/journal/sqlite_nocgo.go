//go:build !cgo
// +build !cgo

package journal

import (
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
