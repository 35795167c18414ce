package parse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"
	"time"

	smithytime "github.com/aws/smithy-go/time"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3bridge/errors"
)

// Node is one element of a parsed XML document.
type Node struct {
	XMLName xml.Name
	Content string  `xml:",chardata"`
	Nodes   []*Node `xml:",any"`
}

// Name returns the local name of the element.
func (n *Node) Name() string { return n.XMLName.Local }

// Child returns the first child element with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

// Children returns every child element with the given local name.
func (n *Node) Children(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// Text returns the text of a leaf element. Elements with child elements or
// with no character data report false.
func (n *Node) Text() (string, bool) {
	if n == nil || len(n.Nodes) > 0 || n.Content == "" {
		return "", false
	}
	return n.Content, true
}

// ParseXML parses body into a tree rooted at the document element.
func ParseXML(body []byte) (*Node, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &s3errors.ParseError{
			Kind: s3errors.MalformedBody,
			Err:  errors.New("empty body"),
		}
	}
	var root Node
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, &s3errors.ParseError{
			Kind: s3errors.MalformedBody,
			Raw:  truncate(string(body), 256),
			Err:  err,
		}
	}
	return &root, nil
}

// ExpectRoot checks the document element name.
func ExpectRoot(root *Node, name string) error {
	if root.Name() != name {
		return &s3errors.ParseError{
			Kind:  s3errors.MalformedBody,
			Field: name,
			Raw:   root.Name(),
			Err:   errors.New("unexpected document element"),
		}
	}
	return nil
}

func field[T any](n *Node, name string, required bool, conv func(string) (T, error)) (*T, error) {
	child := n.Child(name)
	if child == nil {
		if required {
			return nil, &s3errors.ParseError{Kind: s3errors.MissingField, Field: name}
		}
		return nil, nil
	}
	text, ok := child.Text()
	if !ok {
		return nil, &s3errors.ParseError{Kind: s3errors.MalformedBody, Field: name}
	}
	v, err := conv(text)
	if err != nil {
		return nil, invalidValue(name, text, err)
	}
	return &v, nil
}

func asString(s string) (string, error) { return s, nil }

func asTime(s string) (time.Time, error) { return smithytime.ParseDateTime(strings.TrimSpace(s)) }

func asInt64(s string) (int64, error) { return strconv.ParseInt(strings.TrimSpace(s), 10, 64) }

func asBool(s string) (bool, error) { return strconv.ParseBool(strings.TrimSpace(s)) }

// RequiredText returns the text of a required child element.
func RequiredText(n *Node, name string) (string, error) {
	v, err := field(n, name, true, asString)
	if err != nil {
		return "", err
	}
	return *v, nil
}

// OptionalText returns the text of an optional child element.
func OptionalText(n *Node, name string) (*string, error) {
	return field(n, name, false, asString)
}

// OptionalRawText returns the character data of a child element even when it
// is empty. It suits echo fields such as Prefix where an empty element is a
// legitimate value.
func OptionalRawText(n *Node, name string) *string {
	child := n.Child(name)
	if child == nil {
		return nil
	}
	s := child.Content
	return &s
}

// RequiredTime returns an ISO-8601 timestamp element.
func RequiredTime(n *Node, name string) (time.Time, error) {
	v, err := field(n, name, true, asTime)
	if err != nil {
		return time.Time{}, err
	}
	return *v, nil
}

// OptionalTime returns an optional ISO-8601 timestamp element.
func OptionalTime(n *Node, name string) (*time.Time, error) {
	return field(n, name, false, asTime)
}

// RequiredInt64 returns an integer element.
func RequiredInt64(n *Node, name string) (int64, error) {
	v, err := field(n, name, true, asInt64)
	if err != nil {
		return 0, err
	}
	return *v, nil
}

// OptionalInt64 returns an optional integer element.
func OptionalInt64(n *Node, name string) (*int64, error) {
	return field(n, name, false, asInt64)
}

// RequiredBool returns a boolean element.
func RequiredBool(n *Node, name string) (bool, error) {
	v, err := field(n, name, true, asBool)
	if err != nil {
		return false, err
	}
	return *v, nil
}

// OptionalBool returns an optional boolean element.
func OptionalBool(n *Node, name string) (*bool, error) {
	return field(n, name, false, asBool)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
