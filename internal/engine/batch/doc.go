// Package batch runs a callback over a list of independent items and folds the
// outcomes into one result per item.
//
// Processing is sequential and in input order. Key properties:
//   - An item's error is recorded in its Result; it never stops the fold
//   - Context cancellation is checked between items; items not yet started are
//     returned as skipped, carrying the context error
//   - Progress is tracked per item with an optional callback for UI updates
package batch
