package errors

// Messages returned to clients. They are part of the HTTP contract; keep the
// wording stable.
const (
	MsgUnknownQueryParameter   = "unknown query parameter '%s'. If the parameter is an attribute keyword, check the casing as they are case-sensitive"
	MsgUnsupportedForLevel     = "query parameter '%s' is not supported for the requested resource level"
	MsgNestedSequence          = "query parameter '%s' is invalid: nested sequences are not supported"
	MsgDisabledQueryTag        = "query on extended query tag '%s' is disabled"
	MsgDuplicateAttribute      = "the attribute '%s' is specified more than once"
	MsgEmptyAttributeValue     = "query parameter '%s' cannot be empty"
	MsgInvalidDate             = "invalid query: attribute %s has an invalid date value '%s'"
	MsgInvalidDateTime         = "invalid query: attribute %s has an invalid datetime value '%s'"
	MsgDateTimeOffset          = "invalid query: attribute %s value '%s' contains a UTC offset, which is not supported"
	MsgInvalidTime             = "invalid query: attribute %s has an invalid time value '%s'"
	MsgInvalidLong             = "invalid query: attribute %s has an invalid long value '%s'"
	MsgInvalidDouble           = "invalid query: attribute %s has an invalid double value '%s'"
	MsgInvalidRange            = "invalid query: the range '%s' for attribute %s has a start after its end"
	MsgEmptyRange              = "invalid query: the range for attribute %s has neither a start nor an end"
	MsgFuzzyUnsupportedChar    = "invalid query: fuzzy matching value '%s' for attribute %s contains unsupported character '%c'"
	MsgInvalidIncludeField     = "the value '%s' of includefield is not a known attribute"
	MsgIncludeFieldAllCombined = "includefield 'all' cannot be combined with other values"
	MsgInvalidLimit            = "the value of limit must be an integer in the range [%d, %d]"
	MsgInvalidOffset           = "the value of offset must be a non-negative integer"
	MsgInvalidFuzzyMatching    = "the value of fuzzymatching must be 'true' or 'false'"
	MsgInvalidIdentifier       = "the %s '%s' is invalid: %s"
	MsgErroneousAttribute      = "the results may be incomplete: attribute '%s' has indexing errors"
	MsgMalformedQueryString    = "the query string is malformed: %s"
)
