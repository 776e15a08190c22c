package resources

import "embed"

//go:embed profiles/*.yaml
var ProfileFiles embed.FS
