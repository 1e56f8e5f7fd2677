// Command spe-ca provisions the envelope trust root and issues credentials.
//
// Typical provisioning:
//
//	spe-ca generate-ca --root-key spe-root.json
//	spe-ca issue --root-key spe-root.json --subject spe-api --out api-trust.json
//	spe-ca issue --root-key spe-root.json --subject spe-plugin --public-out plugin-trust.public.json
//	spe-ca publish --file plugin-trust.public.json --to ipfs://127.0.0.1:5001
//	spe-ca verify --trust-config api-trust.json
//
// The root key file never leaves the provisioning host.
package main
