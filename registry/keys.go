// Package registry implements the shared connection registry, either on Redis for
// horizontally scaled deployments or in memory for a single process.
package registry

import "folio-chat/domain"

// Key schema shared by every instance. Changing it breaks interop with running nodes.
const (
	userSocketsPrefix = "userSockets:"
	socketPrefix      = "socket:"
	rateLimitPrefix   = "rateLimit:"
)

// UserSocketsKey holds the set of live connection handles of a user.
func UserSocketsKey(userID domain.UserID) string {
	return userSocketsPrefix + string(userID)
}

// SocketKey holds the owning user of a connection handle.
func SocketKey(connID domain.ConnectionID) string {
	return socketPrefix + string(connID)
}

func RateLimitKey(userID domain.UserID) string {
	return rateLimitPrefix + string(userID)
}
