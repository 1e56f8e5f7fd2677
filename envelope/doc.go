// Package envelope builds and validates the mutual-authentication envelope
// carried on every request and response between the plugin and the sentiment
// API.
//
// The sender attaches three headers: its identity JSON text, the trust root's
// signature over that text, and its own signature over the canonical message
// NormalizePath(path) + "\n" + body. The receiver checks them in a fixed order
// and fails fast on the first problem:
//
//  1. all three headers are present (ErrMissingAuthHeaders)
//  2. the root signature over the identity text (ErrInvalidCertificateSignature)
//  3. the identity parses (ErrMalformedCertificate)
//  4. expiry, issuer and subject (ErrCertificateExpired, ErrUnexpectedIssuer, ErrUnexpectedSubject)
//  5. the message signature (ErrInvalidResponseSignature or ErrInvalidRequestSignature)
//
// Builder and Validator hold only read-only state loaded at startup.
package envelope
