// Package stores contains the one-time code persistence backends. The SQL
// store (gorm) keeps every issued code as an immutable row and supersedes via
// conditional updates; the redis store keeps one binary record per
// (account, purpose) key and consumes via optimistic WATCH transactions.
package stores
