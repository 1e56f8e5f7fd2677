// Package api defines the wire types shared by the sentiment API server and
// its plugin-side client.
//
// The analysis endpoint accepts a batch of peer comments:
//
//	POST /analyze
//	{"items":[{"id":"17","text":"Great teammate","score_total":22,"score_min":5,"score_max":25}]}
//
// and answers with one result per item, in order:
//
//	{"ok":true,"results":[{"label":"positive","score":0.87,...,"id":"17"}]}
//
// Both bodies travel inside the mutual-authentication envelope built by
// package envelope. The signed path is always AnalyzePath, whatever URL
// prefix the server is mounted under.
package api
