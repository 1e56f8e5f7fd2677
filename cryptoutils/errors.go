package cryptoutils

import "errors"

// Envelope error taxonomy. Every failure is terminal for the current call;
// callers match with errors.Is.
var (
	ErrDecode                 = errors.New("invalid base64url encoding")
	ErrInvalidKeyLength       = errors.New("invalid key length")
	ErrInvalidSignatureLength = errors.New("invalid signature length")

	ErrMalformedCertificate        = errors.New("malformed certificate")
	ErrCertificateExpired          = errors.New("certificate expired")
	ErrInvalidCertificateSignature = errors.New("invalid certificate signature")

	// ErrUnexpectedClaims is the parent of the issuer and subject pinning errors.
	ErrUnexpectedClaims  = errors.New("unexpected certificate claims")
	ErrUnexpectedIssuer  = &claimsError{msg: "unexpected certificate issuer"}
	ErrUnexpectedSubject = &claimsError{msg: "unexpected certificate subject"}

	ErrMissingAuthHeaders = errors.New("missing authentication headers")

	// ErrInvalidMessageSignature is the parent of the per-direction message
	// signature errors.
	ErrInvalidMessageSignature  = errors.New("invalid message signature")
	ErrInvalidResponseSignature = &messageSigError{msg: "invalid response signature"}
	ErrInvalidRequestSignature  = &messageSigError{msg: "invalid request signature"}

	ErrCredentialKeyMismatch = errors.New("private key does not match certified public key")
)

type claimsError struct{ msg string }

func (e *claimsError) Error() string { return e.msg }
func (e *claimsError) Unwrap() error { return ErrUnexpectedClaims }

type messageSigError struct{ msg string }

func (e *messageSigError) Error() string { return e.msg }
func (e *messageSigError) Unwrap() error { return ErrInvalidMessageSignature }

// ErrorKind maps an envelope error to a short stable label for logs and
// metrics. Unknown errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMissingAuthHeaders):
		return "missing_auth_headers"
	case errors.Is(err, ErrInvalidCertificateSignature):
		return "invalid_certificate_signature"
	case errors.Is(err, ErrMalformedCertificate):
		return "malformed_certificate"
	case errors.Is(err, ErrCertificateExpired):
		return "certificate_expired"
	case errors.Is(err, ErrUnexpectedIssuer):
		return "unexpected_issuer"
	case errors.Is(err, ErrUnexpectedSubject):
		return "unexpected_subject"
	case errors.Is(err, ErrInvalidResponseSignature):
		return "invalid_response_signature"
	case errors.Is(err, ErrInvalidRequestSignature):
		return "invalid_request_signature"
	case errors.Is(err, ErrCredentialKeyMismatch):
		return "credential_key_mismatch"
	case errors.Is(err, ErrInvalidKeyLength):
		return "invalid_key_length"
	case errors.Is(err, ErrInvalidSignatureLength):
		return "invalid_signature_length"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "internal"
	}
}
