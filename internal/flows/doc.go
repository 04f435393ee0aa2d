// Package flows contains the recovery business logic as pure functions over
// Deps structs of function fields. The root package assembles Deps from the
// Engine; tests stub individual fields. Flow functions touch no package-level
// state and import nothing beyond the standard library.
package flows
