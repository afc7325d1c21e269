//go:build !cgo_sqlite

package sqlite

import (
	"net/url"

	_ "modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

func pragmaParams() url.Values {
	return url.Values{
		"_pragma": {"busy_timeout(5000)", "foreign_keys(1)"},
	}
}
