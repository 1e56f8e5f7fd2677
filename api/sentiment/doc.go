// Package sentiment implements both ends of the authenticated analysis
// exchange: the API-side Handler and the plugin-side Client.
package sentiment
