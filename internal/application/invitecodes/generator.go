package invitecodes

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Prefix is the category part of an invite code.
type Prefix string

const (
	PrefixRegion Prefix = "SOA"
	PrefixBranch Prefix = "SOA-BR"
)

// Alphabet excludes I, O, 0 and 1 so codes can be read aloud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLen = 4

var regionCodeRe = regexp.MustCompile(`^[A-Z0-9]{2,3}$`)

// Generator builds {PREFIX}-{REGION}-{XXXX} codes. Rand defaults to crypto/rand.
type Generator struct {
	Rand io.Reader
}

// GenerateCode uses the default Generator.
func GenerateCode(prefix Prefix, regionCode string) (string, error) {
	return Generator{}.Generate(prefix, regionCode)
}

func (g Generator) Generate(prefix Prefix, regionCode string) (string, error) {
	if prefix != PrefixRegion && prefix != PrefixBranch {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}
	region := strings.ToUpper(strings.TrimSpace(regionCode))
	if !regionCodeRe.MatchString(region) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegionCode, regionCode)
	}

	src := g.Rand
	if src == nil {
		src = rand.Reader
	}
	// len(Alphabet) is 32, which divides 256, so b%32 is uniform.
	suffix := make([]byte, suffixLen)
	if _, err := io.ReadFull(src, suffix); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, region, suffix), nil
}
