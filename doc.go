// Package hive is a client library for the HiveKV record store with a
// dynamic, callback-based calling surface.
//
// Keys, bins, metadata, and policies are supplied as plain maps,
// slices, and scalars; results come back the same way. Every operation
// is fire-and-forget: it returns immediately after parsing its
// arguments, the blocking store call runs on a bounded worker pool,
// and the completion callback is invoked exactly once, asynchronously,
// on a single completion goroutine. The first callback argument is
// always the error object {code, message}, with code 0 meaning
// success.
//
// Completion order follows the order background work finishes, not the
// order calls were issued. Callers that need ordering should chain
// from callbacks.
package hive
