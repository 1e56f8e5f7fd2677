// Package storage loads the trust config of a party from pluggable sources.
//
// A trust config holds the trust root public key and the party's own
// credential. It is read once at startup and never refreshed.
//
// # Source URI Format
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///etc/spe/plugin.json
//   - s3://bucket-name/spe/plugin.json?region=eu-west-1
//   - vault://vault.internal:8200/secret/spe/plugin?key=content
//   - ipfs://127.0.0.1:5001/<cid>
//   - github://owner/repo/path/plugin.public.json?ref=main (read-only)
//
// A bare path without a scheme is read from the local file system.
//
// Several URIs can be combined into a MultiSource, which returns the config
// from the first source that has it.
//
// IPFS and GitHub content is public. Publish only the output of
// TrustConfig.MarshalPublic there and supply the private key seed separately.
package storage
