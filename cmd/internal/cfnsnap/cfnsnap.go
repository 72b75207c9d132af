// Package cfnsnap turns synthesized CloudFormation templates into stable snapshots
// and compares them.
//
// Canonicalization removes what changes between synths without changing the
// deployed architecture: asset hashes, asset parameters and the bootstrap version
// check.
package cfnsnap

import (
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/r3labs/diff"
	"gopkg.in/yaml.v3"
)

// AssetHashPlaceholder replaces asset hashes in snapshots.
const AssetHashPlaceholder = "<asset-hash>"

var assetHash = regexp.MustCompile(`[a-f0-9]{64}`)

// Change is one difference between the expected and the actual template.
type Change struct {
	Type string
	Path string
	From any
	To   any
}

// Load reads and canonicalizes the template at path.
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading template %s", path)
	}
	doc, err := Canonicalize(data)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	return doc, nil
}

// Canonicalize parses a JSON or YAML template. Short form intrinsic functions like
// !Sub are expanded to their long form.
func Canonicalize(data []byte) (map[string]any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("invalid YAML document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("template root is not a mapping")
	}
	if findMappingValue(root, "Resources") == nil {
		return nil, errors.New("template has no Resources section")
	}

	expandShortForms(root)
	if params := findMappingValue(root, "Parameters"); params != nil {
		removeKeys(params, func(key string) bool {
			return key == "BootstrapVersion" || strings.HasPrefix(key, "AssetParameters")
		})
	}
	if rules := findMappingValue(root, "Rules"); rules != nil {
		removeKeys(rules, func(key string) bool { return key == "CheckBootstrapVersion" })
	}
	for _, section := range []string{"Parameters", "Rules"} {
		if value := findMappingValue(root, section); value != nil && len(value.Content) == 0 {
			removeKeys(root, func(key string) bool { return key == section })
		}
	}
	if resources := findMappingValue(root, "Resources"); resources.Kind == yaml.MappingNode {
		for i := 1; i < len(resources.Content); i += 2 {
			if meta := findMappingValue(resources.Content[i], "Metadata"); meta != nil {
				removeKeys(meta, func(key string) bool { return strings.HasPrefix(key, "aws:asset:") })
			}
		}
	}
	replaceAssetHashes(root)

	var out map[string]any
	if err := root.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decoding template")
	}
	return out, nil
}

// Marshal encodes a canonical template as a snapshot.
func Marshal(doc map[string]any) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling snapshot")
	}
	return out, nil
}

// Compare lists the changes from expected to actual. Order of list elements matters.
func Compare(expected, actual map[string]any) ([]Change, error) {
	differ, err := diff.NewDiffer(diff.SliceOrdering(true), diff.CustomValueDiffers(kindChange{}))
	if err != nil {
		return nil, errors.Wrap(err, "creating differ")
	}
	changelog, err := differ.Diff(expected, actual)
	if err != nil {
		return nil, errors.Wrap(err, "diffing templates")
	}

	changes := make([]Change, 0, len(changelog))
	for _, c := range changelog {
		changes = append(changes, Change{
			Type: c.Type,
			Path: strings.Join(c.Path, "."),
			From: c.From,
			To:   c.To,
		})
	}
	return changes, nil
}

// kindChange reports a value whose kind changed, e.g. a string that became an
// intrinsic function or a quoted number, as a single update.
type kindChange struct{}

func (kindChange) Match(a, b reflect.Value) bool {
	if a.Kind() != reflect.Interface || b.Kind() != reflect.Interface || a.IsNil() || b.IsNil() {
		return false
	}
	return a.Elem().Kind() != b.Elem().Kind()
}

func (kindChange) Diff(cl *diff.Changelog, path []string, a, b reflect.Value) error {
	cl.Add(diff.UPDATE, path, a.Interface(), b.Interface())
	return nil
}

func findMappingValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func removeKeys(node *yaml.Node, match func(key string) bool) {
	if node.Kind != yaml.MappingNode {
		return
	}
	kept := node.Content[:0]
	for i := 0; i < len(node.Content)-1; i += 2 {
		if match(node.Content[i].Value) {
			continue
		}
		kept = append(kept, node.Content[i], node.Content[i+1])
	}
	node.Content = kept
}

// expandShortForms rewrites "!Fn value" nodes into "{Fn::Fn: value}" mappings.
func expandShortForms(node *yaml.Node) {
	for _, child := range node.Content {
		expandShortForms(child)
	}

	tag := node.Tag
	if !strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "!!") {
		return
	}

	name := strings.TrimPrefix(tag, "!")
	value := *node
	value.Tag = ""
	switch {
	case name == "Ref" || name == "Condition":
	case name == "GetAtt" && value.Kind == yaml.ScalarNode:
		name = "Fn::GetAtt"
		attr := strings.SplitN(value.Value, ".", 2)
		value = yaml.Node{Kind: yaml.SequenceNode}
		for _, part := range attr {
			value.Content = append(value.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part})
		}
	default:
		name = "Fn::" + name
	}
	if value.Kind == yaml.ScalarNode {
		value.Tag = "!!str"
	}

	*node = yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, &value},
	}
}

func replaceAssetHashes(node *yaml.Node) {
	if node.Kind == yaml.ScalarNode {
		node.Value = assetHash.ReplaceAllString(node.Value, AssetHashPlaceholder)
		return
	}
	for _, child := range node.Content {
		replaceAssetHashes(child)
	}
}
