package dicom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// jsonElement is one attribute of the DICOM JSON model (PS3.18 F.2).
type jsonElement struct {
	VR           string            `json:"vr"`
	Value        []json.RawMessage `json:"Value,omitempty"`
	InlineBinary string            `json:"InlineBinary,omitempty"`
	BulkDataURI  string            `json:"BulkDataURI,omitempty"`
}

type personName struct {
	Alphabetic string `json:"Alphabetic,omitempty"`
}

// MarshalJSON encodes the dataset as a DICOM JSON object keyed by hex tag.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Elements))
	for tag, element := range d.Elements {
		values, err := jsonValues(element)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", tag, err)
		}
		entry := map[string]interface{}{"vr": string(element.VR)}
		if len(values) > 0 {
			entry["Value"] = values
		}
		out[tag.Hex()] = entry
	}
	return json.Marshal(out)
}

func jsonValues(element *Element) ([]interface{}, error) {
	var values []interface{}
	switch v := element.Value.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		values = []interface{}{v}
	case []string:
		for _, s := range v {
			values = append(values, s)
		}
	case int:
		values = []interface{}{int64(v)}
	case int64:
		values = []interface{}{v}
	case []int64:
		for _, n := range v {
			values = append(values, n)
		}
	case float64:
		values = []interface{}{v}
	case []float64:
		for _, f := range v {
			values = append(values, f)
		}
	case []*Dataset:
		for _, item := range v {
			values = append(values, item)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}

	if element.VR == VR_PN {
		for i, value := range values {
			if s, ok := value.(string); ok {
				values[i] = personName{Alphabetic: s}
			}
		}
	}
	return values, nil
}

// UnmarshalJSON decodes a DICOM JSON object. Bulk data and inline binary
// values are dropped; the element is kept with its VR and no value.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw map[string]jsonElement
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Elements = make(map[Tag]*Element, len(raw))
	for key, entry := range raw {
		tag, ok := ParseTag(key)
		if !ok {
			return fmt.Errorf("invalid tag %q", key)
		}
		vr := VR(entry.VR)
		if vr == "" {
			vr = DefaultVR(tag)
		}
		value, err := decodeValues(vr, entry.Value)
		if err != nil {
			return fmt.Errorf("decode %s: %w", tag, err)
		}
		d.AddElement(tag, vr, value)
	}
	return nil
}

func decodeValues(vr VR, raw []json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	switch {
	case vr == VR_SQ:
		items := make([]*Dataset, 0, len(raw))
		for _, r := range raw {
			item := NewDataset()
			if err := json.Unmarshal(r, item); err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case vr.IsInteger():
		values := make([]int64, 0, len(raw))
		for _, r := range raw {
			n, err := strconv.ParseInt(string(unquote(r)), 10, 64)
			if err != nil {
				return nil, err
			}
			values = append(values, n)
		}
		return values, nil
	case vr.IsFloat():
		values := make([]float64, 0, len(raw))
		for _, r := range raw {
			f, err := strconv.ParseFloat(string(unquote(r)), 64)
			if err != nil {
				return nil, err
			}
			values = append(values, f)
		}
		return values, nil
	case vr == VR_PN:
		values := make([]string, 0, len(raw))
		for _, r := range raw {
			var pn personName
			if err := json.Unmarshal(r, &pn); err != nil {
				return nil, err
			}
			values = append(values, pn.Alphabetic)
		}
		return values, nil
	default:
		values := make([]string, 0, len(raw))
		for _, r := range raw {
			if bytes.Equal(r, []byte("null")) {
				values = append(values, "")
				continue
			}
			var s string
			if err := json.Unmarshal(r, &s); err != nil {
				return nil, err
			}
			values = append(values, s)
		}
		return values, nil
	}
}

// unquote strips the quotes of numbers encoded as JSON strings, which some
// producers emit for IS and DS values.
func unquote(r json.RawMessage) []byte {
	r = bytes.TrimSpace(r)
	if len(r) >= 2 && r[0] == '"' && r[len(r)-1] == '"' {
		return bytes.TrimSpace(r[1 : len(r)-1])
	}
	return r
}
