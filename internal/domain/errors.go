package domain

import "errors"

var ErrNotFound = errors.New("not found")

// Session construction and lifecycle.
var ErrInvalidListenRange = errors.New("invalid listen port range")
var ErrNoPortAvailable = errors.New("no listen port available")
var ErrSessionClosed = errors.New("session closed")

// Add validation. Parse failures are detected synchronously, before any
// engine work is scheduled.
var ErrInvalidMagnet = errors.New("invalid magnet uri")
var ErrInvalidMetaInfo = errors.New("invalid torrent metainfo")
var ErrAlreadyExists = errors.New("already exists")
var ErrSavePath = errors.New("save path not usable")

// Snapshot protocol. Indexed name lookups answer only from the most recently
// taken snapshot.
var ErrNoSnapshot = errors.New("no snapshot taken")
var ErrIndexOutOfRange = errors.New("index out of range")
