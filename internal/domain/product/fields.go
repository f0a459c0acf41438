package product

import (
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
)

// Tags is a normalized list of product tags. Upstream feeds are inconsistent:
// some emit a JSON array, others a single comma-separated string. Both forms
// decode into the same []string here, once, at the boundary. Nothing past
// this type should ever re-parse a tag field.
type Tags []string

// UnmarshalJSON accepts either a JSON array of strings or a single
// comma-separated string.
func (t *Tags) UnmarshalJSON(data []byte) error {
	list, err := decodeStringList(data, ",")
	if err != nil {
		return errors.Wrap(err, "decode tags")
	}
	*t = list
	return nil
}

// Images is a normalized list of image paths. Like Tags, it tolerates feeds
// that send a single path as a bare string.
type Images []string

// UnmarshalJSON accepts either a JSON array of strings or a single string.
func (im *Images) UnmarshalJSON(data []byte) error {
	list, err := decodeStringList(data, "")
	if err != nil {
		return errors.Wrap(err, "decode images")
	}
	*im = list
	return nil
}

// decodeStringList decodes data as []string, falling back to a single string.
// When sep is non-empty the fallback string is additionally split on it.
func decodeStringList(data []byte, sep string) ([]string, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return trimAll(list), nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	if sep == "" {
		return []string{strings.TrimSpace(s)}, nil
	}
	return trimAll(strings.Split(s, sep)), nil
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
