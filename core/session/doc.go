// Package session is the container's in-memory session store: a
// process-wide mapping from a 128-bit session id to a last-access
// timestamp and a bag of named binary values, shared by every worker and
// never persisted across restarts.
//
// A session id round-trips to the client as the decimal text of a u128 in
// the rustletsessionid cookie (see Text and ParseID). Values are opaque
// byte slices; Writer and Reader implement the small binary codec used to
// encode and decode them, with ready-made helpers for the common uint32
// and string cases.
//
// Housekeeper expires idle sessions on a timer; it is started once by the
// container and stopped when its context is cancelled.
package session
