package dicom

// DictionaryEntry describes a registered attribute.
type DictionaryEntry struct {
	Tag     Tag
	Keyword string
	VR      VR
}

// Frequently referenced tags
var (
	TagSpecificCharacterSet            = Tag{0x0008, 0x0005}
	TagSOPClassUID                     = Tag{0x0008, 0x0016}
	TagSOPInstanceUID                  = Tag{0x0008, 0x0018}
	TagStudyDate                       = Tag{0x0008, 0x0020}
	TagSeriesDate                      = Tag{0x0008, 0x0021}
	TagStudyTime                       = Tag{0x0008, 0x0030}
	TagAccessionNumber                 = Tag{0x0008, 0x0050}
	TagModality                        = Tag{0x0008, 0x0060}
	TagManufacturerModelName           = Tag{0x0008, 0x1090}
	TagReferringPhysicianName          = Tag{0x0008, 0x0090}
	TagStudyDescription                = Tag{0x0008, 0x1030}
	TagSeriesDescription               = Tag{0x0008, 0x103E}
	TagReferencedStudySequence         = Tag{0x0008, 0x1110}
	TagPatientName                     = Tag{0x0010, 0x0010}
	TagPatientID                       = Tag{0x0010, 0x0020}
	TagPatientBirthDate                = Tag{0x0010, 0x0030}
	TagStudyInstanceUID                = Tag{0x0020, 0x000D}
	TagSeriesInstanceUID               = Tag{0x0020, 0x000E}
	TagStudyID                         = Tag{0x0020, 0x0010}
	TagInstanceNumber                  = Tag{0x0020, 0x0013}
	TagPerformedProcedureStepStartDate = Tag{0x0040, 0x0244}
)

// dictionary is the subset of the DICOM data dictionary (PS3.6) used by the
// query engine: every core query attribute, every attribute returned in a
// QIDO-RS response, and the items of the sequences among them.
var dictionary = []DictionaryEntry{
	{Tag{0x0008, 0x0005}, "SpecificCharacterSet", VR_CS},
	{Tag{0x0008, 0x0016}, "SOPClassUID", VR_UI},
	{Tag{0x0008, 0x0018}, "SOPInstanceUID", VR_UI},
	{Tag{0x0008, 0x0020}, "StudyDate", VR_DA},
	{Tag{0x0008, 0x0021}, "SeriesDate", VR_DA},
	{Tag{0x0008, 0x0022}, "AcquisitionDate", VR_DA},
	{Tag{0x0008, 0x0023}, "ContentDate", VR_DA},
	{Tag{0x0008, 0x002A}, "AcquisitionDateTime", VR_DT},
	{Tag{0x0008, 0x0030}, "StudyTime", VR_TM},
	{Tag{0x0008, 0x0031}, "SeriesTime", VR_TM},
	{Tag{0x0008, 0x0032}, "AcquisitionTime", VR_TM},
	{Tag{0x0008, 0x0033}, "ContentTime", VR_TM},
	{Tag{0x0008, 0x0050}, "AccessionNumber", VR_SH},
	{Tag{0x0008, 0x0052}, "QueryRetrieveLevel", VR_CS},
	{Tag{0x0008, 0x0054}, "RetrieveAETitle", VR_AE},
	{Tag{0x0008, 0x0056}, "InstanceAvailability", VR_CS},
	{Tag{0x0008, 0x0060}, "Modality", VR_CS},
	{Tag{0x0008, 0x0061}, "ModalitiesInStudy", VR_CS},
	{Tag{0x0008, 0x0070}, "Manufacturer", VR_LO},
	{Tag{0x0008, 0x0080}, "InstitutionName", VR_LO},
	{Tag{0x0008, 0x0090}, "ReferringPhysicianName", VR_PN},
	{Tag{0x0008, 0x0100}, "CodeValue", VR_SH},
	{Tag{0x0008, 0x0102}, "CodingSchemeDesignator", VR_SH},
	{Tag{0x0008, 0x0104}, "CodeMeaning", VR_LO},
	{Tag{0x0008, 0x0201}, "TimezoneOffsetFromUTC", VR_SH},
	{Tag{0x0008, 0x1030}, "StudyDescription", VR_LO},
	{Tag{0x0008, 0x1032}, "ProcedureCodeSequence", VR_SQ},
	{Tag{0x0008, 0x103E}, "SeriesDescription", VR_LO},
	{Tag{0x0008, 0x1040}, "InstitutionalDepartmentName", VR_LO},
	{Tag{0x0008, 0x1050}, "PerformingPhysicianName", VR_PN},
	{Tag{0x0008, 0x1060}, "NameOfPhysiciansReadingStudy", VR_PN},
	{Tag{0x0008, 0x1070}, "OperatorsName", VR_PN},
	{Tag{0x0008, 0x1080}, "AdmittingDiagnosesDescription", VR_LO},
	{Tag{0x0008, 0x1090}, "ManufacturerModelName", VR_LO},
	{Tag{0x0008, 0x1110}, "ReferencedStudySequence", VR_SQ},
	{Tag{0x0008, 0x1115}, "ReferencedSeriesSequence", VR_SQ},
	{Tag{0x0008, 0x1150}, "ReferencedSOPClassUID", VR_UI},
	{Tag{0x0008, 0x1155}, "ReferencedSOPInstanceUID", VR_UI},
	{Tag{0x0008, 0x1161}, "SimpleFrameList", VR_UL},
	{Tag{0x0008, 0x2218}, "AnatomicRegionSequence", VR_SQ},
	{Tag{0x0010, 0x0010}, "PatientName", VR_PN},
	{Tag{0x0010, 0x0020}, "PatientID", VR_LO},
	{Tag{0x0010, 0x0030}, "PatientBirthDate", VR_DA},
	{Tag{0x0010, 0x0040}, "PatientSex", VR_CS},
	{Tag{0x0010, 0x1010}, "PatientAge", VR_AS},
	{Tag{0x0010, 0x1020}, "PatientSize", VR_DS},
	{Tag{0x0010, 0x1030}, "PatientWeight", VR_DS},
	{Tag{0x0010, 0x2180}, "Occupation", VR_SH},
	{Tag{0x0010, 0x21B0}, "AdditionalPatientHistory", VR_LT},
	{Tag{0x0018, 0x0015}, "BodyPartExamined", VR_CS},
	{Tag{0x0018, 0x0050}, "SliceThickness", VR_DS},
	{Tag{0x0018, 0x1150}, "ExposureTime", VR_IS},
	{Tag{0x0018, 0x6020}, "ReferencePixelX0", VR_SL},
	{Tag{0x0018, 0x9219}, "TagAngleSecondAxis", VR_SS},
	{Tag{0x0020, 0x000D}, "StudyInstanceUID", VR_UI},
	{Tag{0x0020, 0x000E}, "SeriesInstanceUID", VR_UI},
	{Tag{0x0020, 0x0010}, "StudyID", VR_SH},
	{Tag{0x0020, 0x0011}, "SeriesNumber", VR_IS},
	{Tag{0x0020, 0x0013}, "InstanceNumber", VR_IS},
	{Tag{0x0020, 0x0020}, "PatientOrientation", VR_CS},
	{Tag{0x0020, 0x0060}, "Laterality", VR_CS},
	{Tag{0x0020, 0x1041}, "SliceLocation", VR_DS},
	{Tag{0x0028, 0x0008}, "NumberOfFrames", VR_IS},
	{Tag{0x0028, 0x0010}, "Rows", VR_US},
	{Tag{0x0028, 0x0011}, "Columns", VR_US},
	{Tag{0x0028, 0x0100}, "BitsAllocated", VR_US},
	{Tag{0x0028, 0x0122}, "FloatPixelPaddingValue", VR_FL},
	{Tag{0x0028, 0x0123}, "DoubleFloatPixelPaddingValue", VR_FD},
	{Tag{0x0032, 0x1060}, "RequestedProcedureDescription", VR_LO},
	{Tag{0x0040, 0x0009}, "ScheduledProcedureStepID", VR_SH},
	{Tag{0x0040, 0x0244}, "PerformedProcedureStepStartDate", VR_DA},
	{Tag{0x0040, 0x0245}, "PerformedProcedureStepStartTime", VR_TM},
	{Tag{0x0040, 0x0275}, "RequestAttributesSequence", VR_SQ},
	{Tag{0x0040, 0x1001}, "RequestedProcedureID", VR_SH},
}

var (
	byKeyword = make(map[string]DictionaryEntry, len(dictionary))
	byTag     = make(map[Tag]DictionaryEntry, len(dictionary))
)

func init() {
	for _, entry := range dictionary {
		byKeyword[entry.Keyword] = entry
		byTag[entry.Tag] = entry
	}
}

// LookupKeyword finds a dictionary entry by its case-sensitive keyword.
func LookupKeyword(keyword string) (DictionaryEntry, bool) {
	entry, ok := byKeyword[keyword]
	return entry, ok
}

// LookupTag finds a dictionary entry by tag.
func LookupTag(tag Tag) (DictionaryEntry, bool) {
	entry, ok := byTag[tag]
	return entry, ok
}

// DefaultVR returns the dictionary VR of a tag, or UN when it is not registered.
func DefaultVR(tag Tag) VR {
	if entry, ok := byTag[tag]; ok {
		return entry.VR
	}
	return VR_UN
}
