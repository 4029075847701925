// Package queryir provides the clause token representation produced by the
// expression compiler and the clause renderers.
//
// A compiled clause is a Stream: an ordered sequence of tokens, each either
// literal clause text (Text) or an interpolation of a host value that is
// only known at run time (Slot). The rewriter serializes a stream into a
// raw template argument of the client call:
//
//	Stream{Text{"Product.id = "}, Slot{value}, Text{"  OR Product.id = 6"}}
//	    → ` Product.id = ${value}  OR Product.id = 6`
//
// ARCHITECTURE:
//
//	[query clause AST] → [querysql compiler] → [Stream] → [rewriter]
//	                                                    → [statement preview]
//
// SEALED INTERFACES:
//
// Token is a sealed interface using the marker method pattern. Only Text and
// Slot implement it, so consumers switch over tokens exhaustively.
//
// STREAM INVARIANTS:
//   - no empty Text tokens
//   - no two adjacent Text tokens (Append merges them)
//   - Text never contains a backtick or "${", which would change the
//     meaning of the raw template the stream is serialized into
//   - every Slot carries a host expression
//
// Validate reports violations; the rewriter leaves a query untouched when
// any of its streams is not well formed.
package queryir
