// Package blueprint models the protection binary's configuration document.
//
// A blueprint is an arbitrary nested document supplied by the caller. It is
// held as an ordered tree of *Map, []any and scalars so that it can be
// written back out unchanged apart from the few keys this system owns.
//
// Keys are matched case-insensitively wherever the system reads or writes
// them: globalConfiguration, GlobalConfiguration and GLOBALCONFIGURATION are
// the same key, and the first spelling in document order wins.
//
// Blueprints can be loaded from JSON, YAML, or a sandboxed Lua script that
// sees a read-only platform table.
package blueprint
