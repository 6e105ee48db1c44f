/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keybundle

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/absauthn/absauthn/pkg/crypto/curve"
)

const (
	componentFieldCount = 3
	attributeFieldCount = 2
)

// EncodeText renders the bundle in the line-oriented text key format. Each
// keyed component becomes one "name:base64url:TYPETAG" line; the attribute
// map, if present, becomes a single comma-separated "name:value" line with
// no trailing tag. Components are written in sorted name order so the
// output is stable.
func EncodeText(b *Bundle) []byte {
	var sb strings.Builder

	for _, name := range b.Names() {
		el := b.Get(name)
		data := base64.RawURLEncoding.EncodeToString(el.Bytes())

		sb.WriteString(name + ":" + data + ":" + el.Type().String() + "\n")
	}

	if attrs := b.Attributes(); len(attrs) > 0 {
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			sb.WriteString(name + ":" + strconv.FormatInt(attrs[name], 10) + ",")
		}

		sb.WriteString("\n")
	}

	return []byte(sb.String())
}

// DecodeText parses the text key format produced by EncodeText. A line with
// exactly three colon-separated fields is a keyed component decoded by its
// explicit type tag; any other non-empty line is the attribute line. The
// attribute line keeps its trailing comma, so a line ending in a comma is
// always the attribute line even when its colon count matches a component.
func DecodeText(data []byte) (*Bundle, error) {
	bundle := New()

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}

		fields := strings.Split(line, ":")
		if len(fields) == componentFieldCount && !strings.HasSuffix(line, ",") {
			if err := decodeComponentLine(bundle, fields); err != nil {
				return nil, err
			}

			continue
		}

		attrs, err := decodeAttributeLine(line)
		if err != nil {
			return nil, err
		}

		bundle.SetAttributes(attrs)
	}

	return bundle, nil
}

func decodeComponentLine(bundle *Bundle, fields []string) error {
	name, data, tag := fields[0], fields[1], fields[2]

	typ, err := parseTypeTag(tag)
	if err != nil {
		return fmt.Errorf("component %q: %w", name, err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("component %q: decode base64url: %w", name, err)
	}

	el, err := curve.Decode(raw, typ)
	if err != nil {
		return fmt.Errorf("component %q: %w", name, err)
	}

	return bundle.Set(name, el)
}

func decodeAttributeLine(line string) (AttributeMap, error) {
	attrs := make(AttributeMap)

	for _, token := range strings.Split(line, ",") {
		// the encoder leaves a trailing comma, producing one empty token
		if token == "" {
			continue
		}

		fields := strings.Split(token, ":")
		if len(fields) != attributeFieldCount {
			return nil, fmt.Errorf("malformed attribute token %q", token)
		}

		val, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", fields[0], err)
		}

		attrs[fields[0]] = val
	}

	return attrs, nil
}

func parseTypeTag(tag string) (curve.ElementType, error) {
	switch tag {
	case curve.Scalar.String():
		return curve.Scalar, nil
	case curve.G1.String():
		return curve.G1, nil
	case curve.G2.String():
		return curve.G2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeyType, tag)
	}
}
