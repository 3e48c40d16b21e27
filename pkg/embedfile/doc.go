// Package embedfile provides a small registry for named payloads bundled
// with a program and the operations to materialize them on a filesystem.
//
// A File describes one payload: the bundle that owns it, the namespace it is
// grouped under and its bare resource name. Bytes are fetched through a
// ContentProvider keyed by the owner and the namespace-qualified resource
// string, so the same File works against go:embed assets, a directory, S3 or
// Postgres (see the provider subpackages).
//
// A Registry maps string ids to files. Lookups and registrations run through
// ordered hook chains that may rewrite ids, substitute results or cancel a
// write.
//
// Extraction
//
// ExtractTo writes content to an exact path. Extract resolves the path inside
// a directory and applies the skip-if-existing policy. TryExtract logs and
// swallows failures for best-effort batch callers. Content absence is checked
// before any directory is created, so a missing payload leaves nothing behind.
package embedfile
