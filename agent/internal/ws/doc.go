// Package ws streams attach-manager snapshots to WebSocket clients.
//
// The Hub sends the current snapshot on connect and then broadcasts a
// fresh one to every client each interval. Clients whose outgoing buffer
// fills up are disconnected rather than slowing down the broadcast loop.
// Ping frames keep idle connections alive through proxies.
package ws
