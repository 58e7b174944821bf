// Package platform selects the installer asset for a channel, target OS and
// CPU architecture from a release's asset filenames.
//
// The token and extension vocabulary is a compatibility contract with the
// desktop update client and must not drift:
//
//	windows  x86_64: _x64 | x86_64    aarch64: _arm64 | aarch64   i686: _x86 | i686     .msi .exe
//	darwin   x86_64: _x64 | x86_64    aarch64: aarch64 | _arm64                         .app.tar.gz .dmg
//	linux    x86_64: amd64 | x86_64   aarch64: arm64 | aarch64    i686: i386 | i686     .appimage .deb .rpm
package platform
