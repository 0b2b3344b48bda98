package version

// Version is the current balancectl version.
const Version = "0.1.0"
