package forms

import (
	"github.com/localnerve/airtable-forms/internal/types"
)

// AttachmentRef is an already uploaded file referenced by url
type AttachmentRef struct {
	URL string `json:"url"`
}

// IsEmpty reports whether an answer counts as missing for a required question.
func IsEmpty(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []interface{}:
		return len(val) == 0
	case []AttachmentRef:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}
	return false
}

// StringList normalizes a multi-select answer. A lone value becomes a one
// element list and a missing answer an empty list.
func StringList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, types.Stringify(item))
		}
		return out
	default:
		s := types.Stringify(val)
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
}

// AttachmentRefs extracts pre-uploaded attachment references from an answer.
// Accepted shapes are a url string, an object with a url key, or a list of either.
func AttachmentRefs(v interface{}) []AttachmentRef {
	var refs []AttachmentRef
	var add func(item interface{})
	add = func(item interface{}) {
		switch val := item.(type) {
		case string:
			if val != "" {
				refs = append(refs, AttachmentRef{URL: val})
			}
		case map[string]interface{}:
			if u, ok := val["url"].(string); ok && u != "" {
				refs = append(refs, AttachmentRef{URL: u})
			}
		case AttachmentRef:
			if val.URL != "" {
				refs = append(refs, val)
			}
		case []AttachmentRef:
			for _, r := range val {
				add(r)
			}
		case []interface{}:
			for _, r := range val {
				add(r)
			}
		}
	}
	add(v)
	return refs
}

// ScalarValue is the outgoing value for text and single-select questions.
func ScalarValue(v interface{}) string {
	return types.Stringify(v)
}
