// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type FramingError GenericError
type ProtocolError GenericError
type SemanticError GenericError
type InternalError GenericError

// process/bootstrap errors, used by the logger fallback in log.go
type ProcessError GenericError

// common errors - keep in alphabetic order within each class
var (
	ErrBadMagic      = FramingError("frame magic value is wrong")
	ErrBadMessageType = FramingError("frame message type is unknown")
	ErrFrameTooLarge = FramingError("frame length exceeds maximum block size")

	ErrDuplicateInBlock      = ProtocolError("transaction slot resolved twice")
	ErrInconsistentState     = ProtocolError("message received in wrong session state")
	ErrOversizedTransaction  = ProtocolError("transaction exceeds maximum free relay size")
	ErrUnknownVersion        = ProtocolError("peer version string is not recognised")
	ErrShortHashCollision    = ProtocolError("short hash collides within one block")
	ErrUnexpectedTransaction = ProtocolError("transaction does not match any pending slot")

	ErrInvalidCacheIndex   = InternalError("cache index out of range")
	ErrCacheIndexOverflow  = InternalError("cache index counter exceeds wire-safe range")
	ErrAlreadyBuilt        = InternalError("pending block already assembled")
	ErrInvalidDigestLength = InternalError("digest buffer is the wrong length")
	ErrOversizedInlineTransaction = InternalError("inline transaction exceeds 24-bit length field")
	ErrBadTransactionCount        = FramingError("declared transaction count does not match payload length")

	ErrAlreadyInitialised   = ProcessError("already initialised")
	ErrInvalidLoggerChannel = ProcessError("invalid logger channel")

	ErrInvalidDnsTxtRecord = ProtocolError("dns txt record does not match the candidate tag grammar")
	ErrInvalidIpAddress    = ProtocolError("dns txt record address field is not a valid ip address")
	ErrInvalidPortNumber   = ProtocolError("dns txt record port field is out of range")
	ErrInvalidFingerprint  = ProtocolError("dns txt record fingerprint field is the wrong length")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e FramingError) Error() string  { return string(e) }
func (e ProtocolError) Error() string { return string(e) }
func (e SemanticError) Error() string { return string(e) }
func (e InternalError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// determine the class of an error
func IsErrFraming(e error) bool  { _, ok := e.(FramingError); return ok }
func IsErrProtocol(e error) bool { _, ok := e.(ProtocolError); return ok }
func IsErrSemantic(e error) bool { _, ok := e.(SemanticError); return ok }
func IsErrInternal(e error) bool { _, ok := e.(InternalError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
