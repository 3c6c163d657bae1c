// Package portalsdk is a typed Go client for the sponsor-portal auth
// service. The request and response types here are the canonical wire
// shapes: the server handlers marshal these same structs, so client and
// server cannot drift apart.
package portalsdk
