// Package cookiedomain maps request hostnames to the cookie-scoping domain
// shared by a family of application subdomains. Resolution is pure and
// total: every hostname resolves to something, and nothing here touches the
// network or the environment.
package cookiedomain

import (
	"net"
	"strings"
)

// Kind classifies how a hostname participates in cookie sharing.
type Kind string

const (
	// KindFamily hosts share one session cookie across sibling subdomains.
	KindFamily Kind = "family"
	// KindLocal is localhost and loopback, emulating family behaviour in dev.
	KindLocal Kind = "local"
	// KindStandalone hosts keep their cookie to themselves.
	KindStandalone Kind = "standalone"
)

// families lists the root domains whose subdomains intentionally share a
// single cookie scope. The table is fixed: membership in a family is a
// deployment decision, not runtime data.
var families = []string{
	"ainexsuite.com",
	"ainexapps.com",
}

// previewSuffixes mark ephemeral hosting domains whose hostnames are one-off
// and must never receive a widened cookie scope.
var previewSuffixes = []string{
	".vercel.app",
	".netlify.app",
	".web.app",
	".firebaseapp.com",
	".pages.dev",
}

// LocalDomain is the pseudo-domain used for localhost and loopback hosts so
// cross-port development mirrors cross-subdomain production.
const LocalDomain = ".localhost"

// Resolve maps a request hostname to its cookie-scoping domain. Hosts in a
// configured family resolve to the dot-prefixed family root; localhost and
// loopback resolve to LocalDomain; everything else, including ephemeral
// preview hosts, resolves to itself unchanged.
func Resolve(hostname string) string {
	host := normalize(hostname)
	if host == "" {
		return hostname
	}
	if isLocal(host) {
		return LocalDomain
	}
	if root, ok := familyRoot(host); ok {
		return "." + root
	}
	return host
}

// ResolveKind classifies the hostname alongside Resolve. Callers use it to
// decide whether cross-app navigation can rely on shared auth.
func ResolveKind(hostname string) Kind {
	host := normalize(hostname)
	if host == "" {
		return KindStandalone
	}
	if isLocal(host) {
		return KindLocal
	}
	if _, ok := familyRoot(host); ok {
		return KindFamily
	}
	return KindStandalone
}

func normalize(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if host == "" {
		return ""
	}
	// Hostnames sometimes arrive as host:port from Host headers.
	if h, _, err := net.SplitHostPort(host); err == nil && h != "" {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func isLocal(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func familyRoot(host string) (string, bool) {
	for _, suffix := range previewSuffixes {
		if strings.HasSuffix(host, suffix) {
			return "", false
		}
	}
	for _, root := range families {
		if host == root || strings.HasSuffix(host, "."+root) {
			return root, true
		}
	}
	return "", false
}
