// Package internal holds code generation and hashing primitives shared by the
// recovery engine. Nothing here is part of the public API.
package internal
