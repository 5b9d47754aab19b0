//go:build sqlite_vec && cgo

package retriever

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Registering sqlite-vec as an auto-loadable extension for the
// mattn/go-sqlite3 driver, exactly as the teacher's
// internal/store/init_vec.go does for its own embedded corpus store.
func init() {
	vec.Auto()
}
