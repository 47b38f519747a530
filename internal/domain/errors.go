package domain

import "errors"

var ErrNotFound = errors.New("not found")
var ErrNoSession = errors.New("no active session")
var ErrSessionBusy = errors.New("another session is active")
var ErrSessionClosed = errors.New("session closed")
var ErrScanInFlight = errors.New("scan already in flight")
