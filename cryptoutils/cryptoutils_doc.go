// Package cryptoutils provides the cryptographic leaf operations behind the
// SPE mutual-authentication envelope.
//
// Every party (the peer-evaluation plugin and the sentiment API) holds an
// Ed25519 credential issued by a common trust root. A credential is the exact
// identity JSON text, the root's detached signature over that text, and the
// party's own 32-byte private key seed.
//
// # Key Functions
//
//   - Base64URLEncode / Base64URLDecode - URL-safe base64 without padding
//   - ParseIdentity / CheckIdentity - identity parsing and trust policy
//   - VerifyIdentitySignature - root signature over the exact identity text
//   - Sign / Verify - detached Ed25519 signatures
//   - IssueIdentity - root-side issuance used by provisioning tooling
//
// # Identity Format
//
// An identity is a flat JSON object:
//
//	{"id":"spe-plugin","pubkey":"<base64url 32 bytes>","exp":1767225600,"iss":"SPE-CA"}
//
// The signed payload is always the text as issued. A parsed Identity keeps it
// in Raw and is never re-encoded for verification, so key order and
// whitespace drift would break the signature.
//
// # Errors
//
// Failures are reported with the sentinel errors in errors.go and matched with
// errors.Is. ErrorKind maps an error to a short label for logs and metrics.
//
// # Usage Example
//
//	cfg, err := cryptoutils.ParseTrustConfig(data)
//	if err != nil {
//	    log.Fatalf("Failed to load trust config: %v", err)
//	}
//
//	id, err := cryptoutils.ParseIdentity([]byte(cfg.Credential.Certificate))
//	if err != nil {
//	    log.Fatalf("Bad credential: %v", err)
//	}
//	if err := cryptoutils.CheckIdentity(id, cfg.ClientSubject, cfg.Issuer, time.Now()); err != nil {
//	    log.Fatalf("Credential rejected: %v", err)
//	}
package cryptoutils
