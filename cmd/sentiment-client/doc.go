// Command sentiment-client is the plugin-side counterpart of sentiment-server,
// useful for checking a deployment's credentials end to end.
//
//	sentiment-client --trust-config plugin-trust.json probe
//	echo '[{"id":1,"text":"Great teammate","score_total":22}]' | \
//	  sentiment-client --trust-config plugin-trust.json analyze
package main
