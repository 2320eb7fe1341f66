// Package core defines the option model and error taxonomy shared by the
// sdcli command surface and the sd-server wire client.
//
// The central type is [OptionSet], an insertion-ordered bag of option values.
// Generation parameters are deliberately kept as an open key/value set rather
// than an exhaustively-typed struct: the sd-server parameter catalog evolves
// independently of this client, and unknown options must pass through
// untouched. Typed accessors exist only for the handful of keys the client
// itself interprets.
//
// [Resolve] partitions a raw option set into client-side [UtilityOptions] and
// the [GenerationOptions] forwarded to the server. It performs the only
// client-side input validation: layer-skip lists must parse as integers and
// the output begin index must be non-negative. Everything else is serialized
// verbatim; semantic validation of generation values is the server's job.
//
// Error handling follows the sentinel pattern:
//
//	if errors.Is(err, core.ErrNetwork) {
//	    // connection-level failure, nothing reached the server
//	}
//
// [ServerError] carries HTTP-level context and [DecodeError] carries the
// failing record index, so callers can report failures without string
// matching.
package core
