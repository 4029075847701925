// Package ir holds the value model shared by the statement preview, the
// preview store and rewrite reports.
//
// Values are restricted to null, string, int64, bool, arrays and objects.
// There is no float type: bound parameters and stored report fields must
// hash identically on every run, so numbers are int64 only.
//
// MarshalCanonical produces RFC 8785 style JSON (UTF-16 key order, NFC
// strings, no HTML escaping), the only encoding used for content hashes.
// ir imports nothing internal.
package ir
