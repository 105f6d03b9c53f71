// Package auth provides authentication for the Hearth API.
//
// It implements a 2-tier role model (user → admin) with JWT access
// tokens validated by signature only, so request handling never hits
// the database. Suggestion, feedback, and execution requests are scoped
// to the token subject: a user sees and acts on their own
// recommendations, while admin bypasses the subject check for support
// and diagnostics.
package auth
