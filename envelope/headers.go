package envelope

import (
	"fmt"
	"net/http"
	"strings"
)

// Role is the side of the exchange a credential belongs to. It appears
// verbatim in header names.
type Role string

const (
	RoleClient Role = "Client"
	RoleServer Role = "Server"
)

// Peer returns the opposite role.
func (r Role) Peer() Role {
	if r == RoleClient {
		return RoleServer
	}
	return RoleClient
}

// HeaderNames are the three envelope headers for one role.
type HeaderNames struct {
	Cert    string
	CertSig string
	Sig     string
}

// NamesFor returns the header names X-<ns>-<role>-Cert, -CertSig and -Sig.
func NamesFor(namespace string, role Role) HeaderNames {
	prefix := fmt.Sprintf("X-%s-%s-", namespace, role)
	return HeaderNames{
		Cert:    prefix + "Cert",
		CertSig: prefix + "CertSig",
		Sig:     prefix + "Sig",
	}
}

// Header is a single envelope header.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered envelope header set as produced by Builder.Build.
type Headers []Header

// Get returns the value for name, compared case-insensitively.
func (h Headers) Get(name string) string {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return hdr.Value
		}
	}
	return ""
}

// Apply sets every header on dst, replacing existing values.
func (h Headers) Apply(dst http.Header) {
	for _, hdr := range h {
		dst.Set(hdr.Name, hdr.Value)
	}
}

// lookup finds the first non-empty value for name in src. Keys are compared
// case-insensitively so that non-canonical map keys are found as well.
func lookup(src http.Header, name string) string {
	if v := src.Get(name); v != "" {
		return v
	}
	for k, values := range src {
		if !strings.EqualFold(k, name) {
			continue
		}
		for _, v := range values {
			if v != "" {
				return v
			}
		}
	}
	return ""
}
