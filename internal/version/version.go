// ABOUTME: Version information for streamsink
// ABOUTME: Reported by the CLI, the remote control hello and mDNS TXT records
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "streamsink"

	// Manufacturer identifies who built it
	Manufacturer = "Resonate Protocol"
)
