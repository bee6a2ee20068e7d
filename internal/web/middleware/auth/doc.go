// Package auth provides the fiber middleware chain for authentication and
// authorization: credential resolution (session cookie, JWT bearer, API key,
// trusted remote-user header) followed by permission checks against the
// role/permission graph. 401 and 403 responses are JSON.
package auth
