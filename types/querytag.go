package types

import (
	"strings"

	"github.com/caio-sobreiro/dicomweb/dicom"
)

// TagPath addresses an attribute either at the top level of a dataset or
// inside the items of a sequence. Only one level of nesting is supported.
type TagPath struct {
	Sequence dicom.Tag // zero for top-level attributes
	Tag      dicom.Tag
}

// PathOf returns the top-level path of a tag.
func PathOf(tag dicom.Tag) TagPath {
	return TagPath{Tag: tag}
}

// IsSequence reports whether the path points inside a sequence.
func (p TagPath) IsSequence() bool {
	return p.Sequence != (dicom.Tag{})
}

// String returns the hex form, "0020000D" or "00081110.0020000D".
func (p TagPath) String() string {
	if p.IsSequence() {
		return p.Sequence.Hex() + "." + p.Tag.Hex()
	}
	return p.Tag.Hex()
}

// Keyword returns the keyword form, falling back to hex for unknown tags.
func (p TagPath) Keyword() string {
	if p.IsSequence() {
		return p.Sequence.Keyword() + "." + p.Tag.Keyword()
	}
	return p.Tag.Keyword()
}

// ParseTagPath parses the hex form produced by TagPath.String.
func ParseTagPath(s string) (TagPath, bool) {
	outer, inner, nested := strings.Cut(s, ".")
	if !nested {
		tag, ok := dicom.ParseTag(s)
		return TagPath{Tag: tag}, ok
	}
	seq, ok := dicom.ParseTag(outer)
	if !ok {
		return TagPath{}, false
	}
	tag, ok := dicom.ParseTag(inner)
	if !ok {
		return TagPath{}, false
	}
	return TagPath{Sequence: seq, Tag: tag}, true
}

// TagOrigin distinguishes built-in attributes from deployment-registered ones.
type TagOrigin int

const (
	OriginCore TagOrigin = iota
	OriginExtended
)

// ExtendedTagStatus is the lifecycle status of an extended query tag.
type ExtendedTagStatus string

const (
	StatusPending  ExtendedTagStatus = "Pending"
	StatusReady    ExtendedTagStatus = "Ready"
	StatusDisabled ExtendedTagStatus = "Disabled"
	StatusError    ExtendedTagStatus = "Error"
)

// QueryTag describes an attribute that can be used in queries.
type QueryTag struct {
	Path           TagPath
	VR             dicom.VR
	Keyword        string
	Level          ResourceLevel
	Origin         TagOrigin
	Status         ExtendedTagStatus
	ErrorCount     int
	PrivateCreator string
}

// NewCoreQueryTag builds a descriptor for a dictionary attribute.
func NewCoreQueryTag(tag dicom.Tag, level ResourceLevel) QueryTag {
	entry, _ := dicom.LookupTag(tag)
	return QueryTag{
		Path:    PathOf(tag),
		VR:      entry.VR,
		Keyword: entry.Keyword,
		Level:   level,
		Origin:  OriginCore,
		Status:  StatusReady,
	}
}

// IsExtended reports whether the tag was registered by the deployment.
func (q QueryTag) IsExtended() bool {
	return q.Origin == OriginExtended
}

// IsReady reports whether the tag can be queried. Core tags are always ready.
func (q QueryTag) IsReady() bool {
	return q.Origin == OriginCore || q.Status == StatusReady
}

// Name returns the identifier reported to clients: the keyword when there is
// one, the hex path otherwise.
func (q QueryTag) Name() string {
	if q.Keyword != "" {
		return q.Keyword
	}
	return q.Path.Keyword()
}
