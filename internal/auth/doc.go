// Package auth authenticates API callers.
//
// Users never hold a password here. An external identity provider vouches for
// them and the API then issues its own session token:
//
//   - GET /auth/login redirects to the provider, which sends the browser back
//     to /auth/callback?token=<opaque token>
//   - the token is exchanged through an IdentityProvider for the caller's
//     external id, email, name and role
//   - the user is created or refreshed and a signed HS256 JWT carrying the
//     user id and role is set as the "jwt" cookie (HttpOnly, SameSite=Strict)
//
// # Configuration
//
//	JWT_SECRET=<random string>       # required
//	JWT_EXPIRY=24h                   # session lifetime
//	AUTH_SECURE_COOKIES=true         # HTTPS-only cookies
//	IDENTITY_PROFILE_URL=https://... # profile endpoint called with the bearer token
//	GOOGLE_CLIENT_ID=...             # optional, enables POST /auth/google
//
// # Usage
//
//	issuer, err := auth.NewSessionIssuer(cfg.Auth)
//	mw := auth.NewMiddleware(issuer)
//	router.Use(mw.Handler())
//	admin := router.Group("/admin", auth.RequirePrivileged())
//
// Extract the caller in handlers:
//
//	identity, ok := auth.GetIdentity(c)
package auth
