package query

import (
	"net/url"
	"strings"
)

// Control parameter keys. They are matched case-insensitively.
const (
	ParamIncludeField  = "includefield"
	ParamFuzzyMatching = "fuzzymatching"
	ParamLimit         = "limit"
	ParamOffset        = "offset"
)

// Parameter is one key/value pair of a query string.
type Parameter struct {
	Key   string
	Value string
}

// Parameters is a query string in the order it was received. Repeated keys
// are kept as separate entries.
type Parameters []Parameter

// ParseRawQuery splits an encoded query string, keeping the order of pairs.
func ParseRawQuery(raw string) (Parameters, error) {
	var params Parameters
	for raw != "" {
		var pair string
		pair, raw, _ = strings.Cut(raw, "&")
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, err
		}
		params = append(params, Parameter{Key: k, Value: v})
	}
	return params, nil
}

// Add appends a pair and returns the extended list.
func (p Parameters) Add(key, value string) Parameters {
	return append(p, Parameter{Key: key, Value: value})
}

// Encode renders the parameters as a query string.
func (p Parameters) Encode() string {
	var sb strings.Builder
	for i, param := range p {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(param.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(param.Value))
	}
	return sb.String()
}

func isControlParameter(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case ParamIncludeField, ParamFuzzyMatching, ParamLimit, ParamOffset:
		return true
	}
	return false
}
