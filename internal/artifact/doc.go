// Package artifact downloads the protect-web binary from the distribution
// service and installs it into a local install location.
//
// # Acquisition
//
// Manager.Acquire runs the whole sequence under an exclusive lock:
//
//  1. Authenticate with the API key and secret (OAuth2 client credentials)
//  2. Resolve the package for this platform from the server's file list
//  3. Wipe the install location and download the package into it,
//     extracting .zip, .tar, .tar.gz and .tar.zst archives in place
//  4. Expand .dmg packages through an ImageExpander
//  5. Record the installed version in metadata.json
//
// If any step fails the install location is removed. There are no
// automatic retries.
//
// # Verification
//
// When a keyring is configured and the file list publishes a detached
// "<package>.sig", the signature is checked before extraction.
//
// # Errors
//
// Every failure wraps one of ErrAuthentication, ErrNoArtifactFound,
// ErrEntitlementOrQuery, ErrDownload or ErrVerification, or an error from
// the disk image, version cache or lock packages. Messages never include
// the API secret or access token.
package artifact
