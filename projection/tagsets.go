package projection

import (
	"fmt"
	"slices"

	"github.com/caio-sobreiro/dicomweb/dicom"
	"github.com/caio-sobreiro/dicomweb/types"
)

var defaultStudyKeywords = []string{
	"SpecificCharacterSet",
	"StudyDate",
	"StudyTime",
	"AccessionNumber",
	"InstanceAvailability",
	"ReferringPhysicianName",
	"TimezoneOffsetFromUTC",
	"PatientName",
	"PatientID",
	"PatientBirthDate",
	"PatientSex",
	"StudyInstanceUID",
	"StudyID",
}

var extraStudyKeywords = []string{
	"StudyDescription",
	"AnatomicRegionSequence",
	"ProcedureCodeSequence",
	"NameOfPhysiciansReadingStudy",
	"AdmittingDiagnosesDescription",
	"ReferencedStudySequence",
	"PatientAge",
	"PatientSize",
	"PatientWeight",
	"Occupation",
	"AdditionalPatientHistory",
}

var defaultSeriesKeywords = []string{
	"SpecificCharacterSet",
	"Modality",
	"TimezoneOffsetFromUTC",
	"SeriesDescription",
	"SeriesInstanceUID",
	"PerformedProcedureStepStartDate",
	"PerformedProcedureStepStartTime",
	"RequestAttributesSequence",
}

var extraSeriesKeywords = []string{
	"SeriesNumber",
	"Laterality",
	"SeriesDate",
	"SeriesTime",
}

// Every instance attribute is returned by default.
var defaultInstanceKeywords = []string{
	"SpecificCharacterSet",
	"SOPClassUID",
	"SOPInstanceUID",
	"InstanceAvailability",
	"TimezoneOffsetFromUTC",
	"InstanceNumber",
	"Rows",
	"Columns",
	"BitsAllocated",
	"NumberOfFrames",
}

type levelSet struct {
	defaults []dicom.Tag
	all      []dicom.Tag
}

type resourceSet struct {
	defaults map[dicom.Tag]bool
	all      map[dicom.Tag]bool
}

var resourceSets map[types.ResourceType]resourceSet

func init() {
	study := newLevelSet(defaultStudyKeywords, extraStudyKeywords)
	series := newLevelSet(defaultSeriesKeywords, extraSeriesKeywords)
	instance := newLevelSet(defaultInstanceKeywords, nil)

	resourceSets = map[types.ResourceType]resourceSet{
		types.AllStudies:           combine(study),
		types.AllSeries:            combine(study, series),
		types.AllInstances:         combine(study, series, instance),
		types.StudySeries:          combine(series),
		types.StudyInstances:       combine(series, instance),
		types.StudySeriesInstances: combine(instance),
	}
}

func newLevelSet(defaults, extra []string) levelSet {
	set := levelSet{defaults: lookupAll(defaults)}
	set.all = append(slices.Clone(set.defaults), lookupAll(extra)...)
	return set
}

func lookupAll(keywords []string) []dicom.Tag {
	tags := make([]dicom.Tag, 0, len(keywords))
	for _, keyword := range keywords {
		entry, ok := dicom.LookupKeyword(keyword)
		if !ok {
			panic(fmt.Sprintf("projection: %s is missing from the dictionary", keyword))
		}
		tags = append(tags, entry.Tag)
	}
	return tags
}

func combine(levels ...levelSet) resourceSet {
	set := resourceSet{defaults: make(map[dicom.Tag]bool), all: make(map[dicom.Tag]bool)}
	for _, level := range levels {
		for _, tag := range level.defaults {
			set.defaults[tag] = true
		}
		for _, tag := range level.all {
			set.all[tag] = true
		}
	}
	return set
}

// DefaultTags returns the attributes returned for resource without
// includefield, in ascending tag order.
func DefaultTags(resource types.ResourceType) []dicom.Tag {
	return sortedKeys(resourceSets[resource].defaults)
}

// AllTags returns the attributes returned for resource with
// includefield=all, in ascending tag order.
func AllTags(resource types.ResourceType) []dicom.Tag {
	return sortedKeys(resourceSets[resource].all)
}

func sortedKeys(set map[dicom.Tag]bool) []dicom.Tag {
	tags := make([]dicom.Tag, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, dicom.CompareTags)
	return tags
}
