package common

// PackageName is used as the metrics namespace.
const PackageName = "spe_sentiment"

// Version is set at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"
