package types

// Version is overwritten at build time with -ldflags "-X".
var Version = "dev"

// ServiceName is reported by the health endpoint and used as the metrics namespace.
const ServiceName = "fplfetch"
