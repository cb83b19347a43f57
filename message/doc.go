// Package message provides the in-memory message state for a chat
// session.
//
// # Overview
//
// The package is built around three core components:
//
//   - [Message]: a single chat message with its delivery status, edit
//     history, and reply reference.
//   - [Store]: the keyed collection of messages per conversation. The
//     Store is the single shared mutable resource of the engine; all
//     access is serialized internally so the synchronizer, the event
//     reconciler, and read-only queries can share one instance.
//   - [ReplyResolver]: resolves a reply reference to its original
//     message, or to an explicit unavailable sentinel when the
//     original was deleted or never synced.
//
// # Identifier reconciliation
//
// A message is created locally under a client-generated id and may be
// re-keyed to a server-assigned id once the relay confirms it. The
// Store keeps a secondary index from the original id to the current
// id so that later events referencing either identifier land on the
// same entry.
package message
