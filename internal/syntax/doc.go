// Package syntax models the host language syntax tree that persistsql
// analyzes and rewrites.
//
// The tree is a closed set of node kinds. Expressions, clauses, binding
// patterns and document members are sealed interfaces so that every
// consumer can switch over them exhaustively and reject what it does not
// understand.
//
// The package also provides:
//   - a parser for query expressions and statements (ParseExpr,
//     ParseQuery, ParseStatement) used to materialize trees from manifests
//   - a printer (Source) producing canonical single-line source
//   - the package/module/document model with deferred edits (Apply)
//   - copy-on-write substitution of expressions (Replace)
//
// Trees are treated as immutable once built. Replace and Package.Apply
// return new trees and share untouched subtrees with their input.
package syntax
