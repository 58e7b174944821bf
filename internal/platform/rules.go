package platform

import "strings"

// Supported targets.
const (
	TargetWindows = "windows"
	TargetDarwin  = "darwin"
	TargetLinux   = "linux"
)

// Supported architectures.
const (
	ArchX8664   = "x86_64"
	ArchAarch64 = "aarch64"
	ArchI686    = "i686"
)

// signatureSuffix is appended to an installer name to form its companion signature.
const signatureSuffix = ".sig"

// rule describes the installers accepted for one target.
type rule struct {
	// archTokens maps an architecture to the substrings identifying it in filenames.
	archTokens map[string][]string
	// archExcludes lists substrings that disqualify an architecture even when a token matched,
	// e.g. "_x86" is a prefix of "_x86_64".
	archExcludes map[string][]string
	// extensions lists accepted installer suffixes, lower-case.
	extensions []string
}

// rules is keyed by target.
//
//nolint:gochecknoglobals // Fixed vocabulary shared with the update client.
var rules = map[string]rule{
	TargetWindows: {
		archTokens: map[string][]string{
			ArchX8664:   {"_x64", "x86_64"},
			ArchI686:    {"_x86", "i686"},
			ArchAarch64: {"_arm64", "aarch64"},
		},
		archExcludes: map[string][]string{
			ArchI686: {"x86_64"},
		},
		extensions: []string{".msi", ".exe"},
	},
	TargetDarwin: {
		archTokens: map[string][]string{
			ArchX8664:   {"_x64", "x86_64"},
			ArchAarch64: {"aarch64", "_arm64"},
		},
		extensions: []string{".app.tar.gz", ".dmg"},
	},
	TargetLinux: {
		archTokens: map[string][]string{
			ArchX8664:   {"amd64", "x86_64"},
			ArchAarch64: {"arm64", "aarch64"},
			ArchI686:    {"i386", "i686"},
		},
		extensions: []string{".appimage", ".deb", ".rpm"},
	},
}

// matches reports whether name (already stripped of its channel prefix)
// is an installer for the given architecture.
func (r rule) matches(arch, name string) bool {
	tokens, ok := r.archTokens[arch]
	if !ok {
		return false
	}

	lower := strings.ToLower(name)

	hasExtension := false

	for _, ext := range r.extensions {
		if strings.HasSuffix(lower, ext) {
			hasExtension = true
			break
		}
	}

	if !hasExtension {
		return false
	}

	for _, exclude := range r.archExcludes[arch] {
		if strings.Contains(lower, exclude) {
			return false
		}
	}

	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}

	return false
}

// IsSignature reports whether name is a companion signature file.
func IsSignature(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), signatureSuffix)
}

// Supported reports whether the target/arch pair is part of the vocabulary.
func Supported(target, arch string) bool {
	r, ok := rules[strings.ToLower(target)]
	if !ok {
		return false
	}

	_, ok = r.archTokens[strings.ToLower(arch)]

	return ok
}
