// Command sentiment-server runs the sentiment API behind the mutual
// authentication envelope.
//
// Requests to POST /analyze must carry a client envelope issued by the
// configured trust root; every response is signed with the server credential.
// The trust config can be read from a local file, S3, Vault or IPFS, and the
// private key seed may be supplied separately via SPE_PRIVATE_KEY.
//
// Example usage:
//
//	sentiment-server \
//	  --listen-addr 0.0.0.0:8080 \
//	  --trust-config vault://vault.internal:8200/secret/spe/api?tls=true \
//	  --trust-config file:///etc/spe/api-trust.json \
//	  --api-token "$SPE_API_TOKEN"
package main
