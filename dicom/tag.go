package dicom

import (
	"fmt"
	"strconv"
	"strings"
)

// VR is a DICOM Value Representation.
type VR string

// VR (Value Representation) constants
const (
	VR_AE VR = "AE" // Application Entity
	VR_AS VR = "AS" // Age String
	VR_AT VR = "AT" // Attribute Tag
	VR_CS VR = "CS" // Code String
	VR_DA VR = "DA" // Date
	VR_DS VR = "DS" // Decimal String
	VR_DT VR = "DT" // Date Time
	VR_FL VR = "FL" // Floating Point Single
	VR_FD VR = "FD" // Floating Point Double
	VR_IS VR = "IS" // Integer String
	VR_LO VR = "LO" // Long String
	VR_LT VR = "LT" // Long Text
	VR_OB VR = "OB" // Other Byte
	VR_OD VR = "OD" // Other Double
	VR_OF VR = "OF" // Other Float
	VR_OL VR = "OL" // Other Long
	VR_OV VR = "OV" // Other Very Long
	VR_OW VR = "OW" // Other Word
	VR_PN VR = "PN" // Person Name
	VR_SH VR = "SH" // Short String
	VR_SL VR = "SL" // Signed Long
	VR_SQ VR = "SQ" // Sequence of Items
	VR_SS VR = "SS" // Signed Short
	VR_ST VR = "ST" // Short Text
	VR_SV VR = "SV" // Signed Very Long
	VR_TM VR = "TM" // Time
	VR_UC VR = "UC" // Unlimited Characters
	VR_UI VR = "UI" // Unique Identifier
	VR_UL VR = "UL" // Unsigned Long
	VR_UN VR = "UN" // Unknown
	VR_UR VR = "UR" // Universal Resource
	VR_US VR = "US" // Unsigned Short
	VR_UT VR = "UT" // Unlimited Text
	VR_UV VR = "UV" // Unsigned Very Long
)

// IsInteger reports whether values of the VR are binary or string integers.
func (vr VR) IsInteger() bool {
	switch vr {
	case VR_IS, VR_SL, VR_SS, VR_SV, VR_UL, VR_US, VR_UV:
		return true
	}
	return false
}

// IsFloat reports whether values of the VR are binary or string decimals.
func (vr VR) IsFloat() bool {
	switch vr {
	case VR_DS, VR_FL, VR_FD:
		return true
	}
	return false
}

// Tag represents a DICOM tag (group, element)
type Tag struct {
	Group   uint16
	Element uint16
}

// String returns the tag as a string in (GGGG,EEEE) format
func (t Tag) String() string {
	return fmt.Sprintf("(%04x,%04x)", t.Group, t.Element)
}

// Hex returns the tag as eight upper-case hex digits, the form used by
// DICOMweb query parameters and the DICOM JSON model.
func (t Tag) Hex() string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// IsPrivate reports whether the tag belongs to an odd (private) group.
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// Keyword returns the dictionary keyword, or the hex form for tags the
// dictionary does not know.
func (t Tag) Keyword() string {
	if entry, ok := LookupTag(t); ok {
		return entry.Keyword
	}
	return t.Hex()
}

// ParseTag parses an eight hex digit group+element string such as "0020000D".
func ParseTag(s string) (Tag, bool) {
	if len(s) != 8 {
		return Tag{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Tag{}, false
	}
	return Tag{Group: uint16(v >> 16), Element: uint16(v)}, true
}

// ParseAttribute resolves a keyword or a hex tag to a Tag.
func ParseAttribute(id string) (Tag, bool) {
	id = strings.TrimSpace(id)
	if entry, ok := LookupKeyword(id); ok {
		return entry.Tag, true
	}
	return ParseTag(id)
}
