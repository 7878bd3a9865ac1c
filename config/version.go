package config

// Version is set at link time with -ldflags "-X github.com/cprobe/swordfish/config.Version=...".
var Version = "not specified"
