// Package auth implements the OAuth2 credential lifecycle for the Microsoft
// identity platform: acquiring tokens through the authorization-code flow,
// persisting them to a JSON file, caching them in memory, refreshing them
// before expiry, and classifying every failure into a stable reason taxonomy.
//
// The package is organized around a single Manager, constructed once at
// startup and shared by the HTTP routes, the MCP tools, and the Graph client.
// The Manager owns the token cache, the file-backed TokenStore, and the
// last-reason diagnostic slot. Concurrent loads and refreshes are collapsed
// into one in-flight operation each; providers may rotate a refresh token on
// first use, so a duplicate concurrent refresh could invalidate the session.
//
// Callers obtain credentials through two entry points:
//
//	token, err := manager.EnsureAuthenticated(ctx) // error carries user guidance
//	token, err := manager.GetAccessToken(ctx)      // raw facade result
//
// Both consult the cache first, fall back to the store, and refresh as a
// last resort. Failures never trigger automatic retries; the caller decides
// whether to send the user back through the browser flow.
package auth
