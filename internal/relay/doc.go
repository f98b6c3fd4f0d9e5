// Package relay implements the real-time presence and messaging relay.
//
// The relay keeps a registry of which logical users currently hold a live
// WebSocket connection, tracks advisory room membership per conversation, and
// routes typed events (joins, typing indicators, chat messages, presence
// transitions) between connected peers. A small HTTP control plane lets
// trusted collaborators trigger a broadcast after they have durably stored a
// message elsewhere; the relay itself persists nothing.
package relay
