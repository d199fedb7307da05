package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyIDs      = "ids"
	keyGroup    = "group"
	keyFocus    = "focus"
	keyName     = "name"
	keyCapacity = "capacity"
	keyReadOnly = "read_only"
	keyStatus   = "status"

	statusComplete = "complete"
)

type jsonField struct {
	key string
	raw json.RawMessage
}

// document is a decoded bin document before it becomes a Bin.
type document struct {
	shape    Shape
	ids      []string
	hasIDs   bool
	name     string
	group    string
	focus    string
	status   string
	capacity int
	readOnly bool

	jsonFields []jsonField
	yamlDoc    *yaml.Node
}

func (d *document) complete() bool {
	return d.readOnly || strings.EqualFold(strings.TrimSpace(d.status), statusComplete)
}

func decodeDocument(data []byte, format string) (*document, error) {
	if format == FormatYAML {
		return decodeYAML(data)
	}
	return decodeJSON(data)
}

func decodeJSON(data []byte) (*document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	switch trimmed[0] {
	case '[':
		var ids []string
		if err := json.Unmarshal(trimmed, &ids); err != nil {
			return nil, fmt.Errorf("decode id list: %w", err)
		}
		return &document{shape: ShapeList, ids: ids, hasIDs: true}, nil
	case '{':
		fields, err := decodeJSONFields(trimmed)
		if err != nil {
			return nil, err
		}
		doc := &document{shape: ShapeObject, jsonFields: fields}
		for _, f := range fields {
			if err := doc.applyJSON(f.key, f.raw); err != nil {
				return nil, fmt.Errorf("field %q: %w", f.key, err)
			}
		}
		return doc, nil
	default:
		return nil, errors.New("document must be a list of ids or an object")
	}
}

// decodeJSONFields reads a top-level object keeping key order. A repeated
// key keeps its first position and its last value.
func decodeJSONFields(data []byte) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []jsonField
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		if i, dup := index[key]; dup {
			fields[i].raw = raw
			continue
		}
		index[key] = len(fields)
		fields = append(fields, jsonField{key: key, raw: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after document")
	}
	return fields, nil
}

func (d *document) applyJSON(key string, raw json.RawMessage) error {
	switch key {
	case keyIDs:
		d.hasIDs = true
		return json.Unmarshal(raw, &d.ids)
	case keyGroup:
		return json.Unmarshal(raw, &d.group)
	case keyFocus:
		return json.Unmarshal(raw, &d.focus)
	case keyName:
		return json.Unmarshal(raw, &d.name)
	case keyStatus:
		return json.Unmarshal(raw, &d.status)
	case keyCapacity:
		return json.Unmarshal(raw, &d.capacity)
	case keyReadOnly:
		return json.Unmarshal(raw, &d.readOnly)
	}
	return nil
}

func decodeYAML(data []byte) (*document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("empty document")
	}
	node := root.Content[0]
	doc := &document{yamlDoc: &root}
	switch node.Kind {
	case yaml.SequenceNode:
		ids, err := scalarList(node)
		if err != nil {
			return nil, err
		}
		doc.shape = ShapeList
		doc.ids = ids
		doc.hasIDs = true
	case yaml.MappingNode:
		doc.shape = ShapeObject
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if err := doc.applyYAML(key, node.Content[i+1]); err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
		}
	default:
		return nil, errors.New("document must be a list of ids or a mapping")
	}
	return doc, nil
}

func (d *document) applyYAML(key string, value *yaml.Node) error {
	switch key {
	case keyIDs:
		d.hasIDs = true
		if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
			d.ids = nil
			return nil
		}
		ids, err := scalarList(value)
		d.ids = ids
		return err
	case keyGroup:
		return value.Decode(&d.group)
	case keyFocus:
		return value.Decode(&d.focus)
	case keyName:
		return value.Decode(&d.name)
	case keyStatus:
		return value.Decode(&d.status)
	case keyCapacity:
		return value.Decode(&d.capacity)
	case keyReadOnly:
		return value.Decode(&d.readOnly)
	}
	return nil
}

func scalarList(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, errors.New("ids must be a sequence")
	}
	ids := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: id must be a scalar", item.Line)
		}
		ids = append(ids, item.Value)
	}
	return ids, nil
}

// encodeBin renders a bin in its remembered shape and format, replacing only
// the id list.
func encodeBin(b *Bin) ([]byte, error) {
	if b.Format == FormatYAML {
		return encodeYAML(b)
	}
	return encodeJSON(b)
}

func encodeJSON(b *Bin) ([]byte, error) {
	ids, err := marshalJSON(idList(b.IDs))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if b.Shape == ShapeList {
		if err := json.Indent(&buf, ids, "", "  "); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	}

	fields := b.jsonFields
	if fields == nil {
		fields, err = newJSONFields(b)
		if err != nil {
			return nil, err
		}
	}
	hasIDs := false
	for _, f := range fields {
		if f.key == keyIDs {
			hasIDs = true
			break
		}
	}
	if !hasIDs {
		fields = append(fields, jsonField{key: keyIDs})
	}

	buf.WriteString("{\n")
	for i, f := range fields {
		key, err := marshalJSON(f.key)
		if err != nil {
			return nil, err
		}
		value := f.raw
		if f.key == keyIDs {
			value = ids
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, value, "  ", "  "); err != nil {
			return nil, fmt.Errorf("field %q: %w", f.key, err)
		}
		if i < len(fields)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func newJSONFields(b *Bin) ([]jsonField, error) {
	group, err := marshalJSON(b.Group)
	if err != nil {
		return nil, err
	}
	focus, err := marshalJSON(b.Focus)
	if err != nil {
		return nil, err
	}
	return []jsonField{
		{key: keyGroup, raw: group},
		{key: keyFocus, raw: focus},
		{key: keyIDs},
	}, nil
}

// marshalJSON encodes v without HTML escaping and without the trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeYAML(b *Bin) ([]byte, error) {
	doc := b.yamlDoc
	if doc == nil {
		doc = newYAMLDocument(b)
	}
	root := doc.Content[0]
	if b.Shape == ShapeList {
		root.Content = idNodes(b.IDs)
	} else {
		replaced := false
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == keyIDs {
				root.Content[i+1] = idSequence(b.IDs, root.Content[i+1].Style)
				replaced = true
				break
			}
		}
		if !replaced {
			root.Content = append(root.Content, stringNode(keyIDs), idSequence(b.IDs, 0))
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newYAMLDocument(b *Bin) *yaml.Node {
	mapping := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			stringNode(keyGroup), stringNode(b.Group),
			stringNode(keyFocus), stringNode(b.Focus),
			stringNode(keyIDs), idSequence(nil, 0),
		},
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}
}

func idSequence(ids []string, style yaml.Style) *yaml.Node {
	if style != yaml.FlowStyle {
		style = 0
	}
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: style, Content: idNodes(ids)}
}

func idNodes(ids []string) []*yaml.Node {
	nodes := make([]*yaml.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, stringNode(id))
	}
	return nodes
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func idList(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
