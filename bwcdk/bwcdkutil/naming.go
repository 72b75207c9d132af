package bwcdkutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/iancoleman/strcase"
)

// Casing specifies how to format the identifier string.
type Casing int

const (
	// CasingCamel formats as CamelCase (e.g., "BwscStagApiGateway").
	CasingCamel Casing = iota
	// CasingLowerCamel formats as lowerCamelCase (e.g., "bwscStagApiGateway").
	CasingLowerCamel
	// CasingSnake formats as snake_case (e.g., "bwsc_stag_api_gateway").
	CasingSnake
	// CasingScreamingSnake formats as SCREAMING_SNAKE_CASE (e.g., "BWSC_STAG_API_GATEWAY").
	CasingScreamingSnake
	// CasingKebab formats as kebab-case (e.g., "bwsc-stag-api-gateway").
	CasingKebab
	// CasingScreamingKebab formats as SCREAMING-KEBAB-CASE (e.g., "BWSC-STAG-API-GATEWAY").
	CasingScreamingKebab
)

// ResourceName generates a resource identifier prefixed with the stack's qualifier
// and deployment identifier. The label is a free-form string that the caller provides.
//
// The format is: "{qualifier}-{deploymentIdent}-{label}" converted to the specified casing.
//
// For shared stacks (no deployment identifier), the format is: "{qualifier}-{label}".
//
// Examples with qualifier "bwsc", deployment "Stag", label "ApiGateway":
//   - CasingCamel:          "BwscStagApiGateway"
//   - CasingLowerCamel:     "bwscStagApiGateway"
//   - CasingSnake:          "bwsc_stag_api_gateway"
//   - CasingScreamingSnake: "BWSC_STAG_API_GATEWAY"
//   - CasingKebab:          "bwsc-stag-api-gateway"
//   - CasingScreamingKebab: "BWSC-STAG-API-GATEWAY"
func ResourceName(scope constructs.Construct, label string, casing Casing) string {
	qualifier := Qualifier(scope)
	deploymentIdent := DeploymentIdent(scope)

	var base string
	if deploymentIdent != "" {
		base = fmt.Sprintf("%s-%s-%s", qualifier, deploymentIdent, label)
	} else {
		base = fmt.Sprintf("%s-%s", qualifier, label)
	}

	return applyCasing(base, casing)
}

func applyCasing(s string, casing Casing) string {
	switch casing {
	case CasingCamel:
		return strcase.ToCamel(s)
	case CasingLowerCamel:
		return strcase.ToLowerCamel(s)
	case CasingSnake:
		return strcase.ToSnake(s)
	case CasingScreamingSnake:
		return strcase.ToScreamingSnake(s)
	case CasingKebab:
		return strcase.ToKebab(s)
	case CasingScreamingKebab:
		return strcase.ToScreamingKebab(s)
	default:
		return strcase.ToCamel(s)
	}
}

// RegionIdentFor returns a short, CamelCase identifier for an AWS region that is
// used in stack names, e.g. "Use1" for us-east-1 and "Apse2" for ap-southeast-2.
func RegionIdentFor(region string) string {
	parts := strings.Split(region, "-")
	if len(parts) < 3 {
		return strcase.ToCamel(region)
	}

	var ident strings.Builder
	ident.WriteString(parts[0])
	for _, part := range parts[1 : len(parts)-1] {
		for _, dir := range []string{"north", "south", "east", "west", "central"} {
			if rest, ok := strings.CutPrefix(part, dir); ok {
				ident.WriteByte(dir[0])
				part = rest
			}
		}
		if part != "" {
			ident.WriteByte(part[0])
		}
	}
	ident.WriteString(parts[len(parts)-1])

	return strcase.ToCamel(ident.String())
}

// physicalNameHashLength is the number of hex characters appended to generated names.
const physicalNameHashLength = 8

// GeneratePhysicalName builds a deterministic physical resource name from a prefix
// and a list of name parts. Non-alphanumeric characters are stripped from the parts,
// the result is truncated so that it never exceeds maxLength and a short hash of
// all (untruncated) parts is appended so that truncated names remain unique.
func GeneratePhysicalName(prefix string, parts []string, maxLength int) string {
	sum := sha256.Sum256([]byte(prefix + strings.Join(parts, "/")))
	suffix := hex.EncodeToString(sum[:])[:physicalNameHashLength]

	var body strings.Builder
	for _, part := range parts {
		body.WriteString(nonAlphanumeric.ReplaceAllString(part, ""))
	}

	available := maxLength - len(prefix) - len(suffix)
	if available < 0 {
		panic(fmt.Sprintf("maxLength %d is too small for prefix %q", maxLength, prefix))
	}

	name := body.String()
	if len(name) > available {
		name = name[:available]
	}

	return strings.ToLower(prefix + name + suffix)
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
