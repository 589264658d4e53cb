// Package internal holds the key-space layout and the token generator.
// Nothing here is part of the public API.
package internal

// Key layout, one flat namespace per app:
//
//	{ns}{app}:_sessions   ZSET  token:id scored by last activity
//	{ns}{app}:_users      ZSET  id scored by the user's latest activity
//	{ns}{app}:us:{id}     SET   tokens owned by id
//	{ns}{app}:{token}     HASH  the session record
//	{ns}SESSIONS          ZSET  app:token:id scored by expiry deadline
//	{ns}cache             pub/sub channel for cache invalidation
//
// ns always carries a trailing ":".

// SessionsKey is the per-app sessions index.
func SessionsKey(ns, app string) string {
	return ns + app + ":_sessions"
}

// UsersKey is the per-app users activity index.
func UsersKey(ns, app string) string {
	return ns + app + ":_users"
}

// TokensKey is the per-user token set.
func TokensKey(ns, app, id string) string {
	return ns + app + ":us:" + id
}

// SessionKey is the session hash itself.
func SessionKey(ns, app, token string) string {
	return ns + app + ":" + token
}

// GlobalExpiryKey is the cross-app expiry index consumed by the sweeper.
func GlobalExpiryKey(ns string) string {
	return ns + "SESSIONS"
}

// CacheChannel is the invalidation broadcast channel.
func CacheChannel(ns string) string {
	return ns + "cache"
}

// CacheKey identifies a session in the local read-through cache. It is not
// a Redis key and carries no namespace.
func CacheKey(app, token string) string {
	return app + ":" + token
}
