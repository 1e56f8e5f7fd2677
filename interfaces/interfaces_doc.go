// Package interfaces defines the contracts between the sentiment envelope
// components without including implementation details.
//
// # Trust Source Interfaces
//
//   - TrustSource: any system that can serve (and optionally accept) the
//     serialized trust config of one party
//   - TrustSourceLocation: a parsed file://, s3://, vault://, ipfs:// or github:// URI
//
// # Errors
//
//   - ErrContentNotFound: the trust config does not exist at the source
//   - ErrBackendUnavailable: the source could not be reached
//   - ErrInvalidLocationURI: the URI is malformed or uses an unknown scheme
package interfaces
