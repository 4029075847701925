package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room to change the hashed shape later.
const (
	DomainDocument = "persistsql/document/v1"
	DomainRewrite  = "persistsql/rewrite/v1"
	DomainBinding  = "persistsql/binding/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content hash of a rendered document. The
// document name is part of the hash, so identical text in two files does
// not collide.
func DocumentHash(name, text string) (string, error) {
	obj := IRObject{
		"name": IRString(name),
		"text": IRString(text),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// RewriteID computes a stable identifier for one rewritten query: the
// hash of the original document it came from, the query location and the
// rewritten call source. The same input package always yields the same
// ids, independent of the run id.
func RewriteID(documentHash, location, rewritten string) (string, error) {
	obj := IRObject{
		"document":  IRString(documentHash),
		"location":  IRString(location),
		"rewritten": IRString(rewritten),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RewriteID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRewrite, canonical), nil
}

// BindingHash computes the hash of a set of preview parameter bindings.
// Null bindings cannot be hashed and return an error.
func BindingHash(bindings IRObject) (string, error) {
	canonical, err := MarshalCanonical(bindings)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDocumentHash(name, text string) string {
	h, err := DocumentHash(name, text)
	if err != nil {
		panic(err)
	}
	return h
}

// MustRewriteID is like RewriteID but panics on error.
func MustRewriteID(documentHash, location, rewritten string) string {
	id, err := RewriteID(documentHash, location, rewritten)
	if err != nil {
		panic(err)
	}
	return id
}
