// Package version holds the release version of restorm.
// The Version constant is rewritten by `restorm bump-version`.
package version

// Version is the current semantic version of the service
const Version = "1.0.0"
