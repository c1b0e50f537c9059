// Package version holds the version information for the bot. Version is overridden at link time with
// -ldflags "-X git.ferricyanide.solutions/A_D/goGoJenkinsBot/internal/version.Version=..."
package version

// Version is the current version of goGoJenkinsBot
var Version = "0.1.0-dev"

// CTCPVersion returns the string sent in reply to a CTCP VERSION request
func CTCPVersion() string {
	return "goGoJenkinsBot " + Version
}
