// Package tor routes probe traffic through the Tor network. Probing
// dozens of platforms for the same username from one IP address is a
// distinctive pattern; routing through Tor decouples the hunt from
// the operator's network identity.
//
// Two modes are supported: an external Tor daemon reached over its
// SOCKS5 port, or an embedded daemon launched via tornago for
// zero-setup use.
package tor
