// Package asset defines the canonical asset record, the Patch merge rules
// used by the cache, and the Normalizer that turns service payloads into
// assets.
//
// Normalization fails closed: a payload missing its id or carrying an unknown
// file type yields a *DecodeError and no record. Everything optional gets a
// documented default, and relative URLs are resolved against the configured
// static base.
package asset
