// Package pkihandler publishes the sentiment API's public trust material and
// lets a plugin operator check it against a local trust config.
//
// Example:
//
//	info, err := pkihandler.FetchTrustInfo(ctx, "https://sentiment.example.com")
//	if err != nil {
//	    return err
//	}
//	if err := pkihandler.CheckAlignment(info, pluginCfg, time.Now()); err != nil {
//	    log.Printf("API was provisioned from a different root: %v", err)
//	}
package pkihandler
