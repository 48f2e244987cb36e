package types

// ResourceLevel is the DICOM information-model level an attribute belongs to.
type ResourceLevel int

const (
	LevelStudy ResourceLevel = iota
	LevelSeries
	LevelInstance
)

func (l ResourceLevel) String() string {
	switch l {
	case LevelStudy:
		return "STUDY"
	case LevelSeries:
		return "SERIES"
	case LevelInstance:
		return "IMAGE"
	default:
		return "UNKNOWN"
	}
}

// ParseResourceLevel parses the level names used by extended query tag records.
func ParseResourceLevel(s string) (ResourceLevel, bool) {
	switch s {
	case "STUDY", "Study", "study":
		return LevelStudy, true
	case "SERIES", "Series", "series":
		return LevelSeries, true
	case "IMAGE", "INSTANCE", "Instance", "instance":
		return LevelInstance, true
	}
	return 0, false
}

// ResourceType identifies the QIDO-RS resource being searched.
type ResourceType int

const (
	AllStudies ResourceType = iota
	AllSeries
	AllInstances
	StudySeries
	StudyInstances
	StudySeriesInstances
)

func (r ResourceType) String() string {
	switch r {
	case AllStudies:
		return "studies"
	case AllSeries:
		return "series"
	case AllInstances:
		return "instances"
	case StudySeries:
		return "study-series"
	case StudyInstances:
		return "study-instances"
	case StudySeriesInstances:
		return "study-series-instances"
	default:
		return "unknown"
	}
}

// Level returns the level of the resources returned by the query.
func (r ResourceType) Level() ResourceLevel {
	switch r {
	case AllStudies:
		return LevelStudy
	case AllSeries, StudySeries:
		return LevelSeries
	default:
		return LevelInstance
	}
}

// FilterLevels returns the levels whose attributes may be filtered on.
// Queries scoped to a study (or series) cannot filter on the attributes of
// the enclosing level, except through the route identifiers.
func (r ResourceType) FilterLevels() []ResourceLevel {
	switch r {
	case AllStudies:
		return []ResourceLevel{LevelStudy}
	case AllSeries:
		return []ResourceLevel{LevelStudy, LevelSeries}
	case AllInstances:
		return []ResourceLevel{LevelStudy, LevelSeries, LevelInstance}
	case StudySeries:
		return []ResourceLevel{LevelSeries}
	case StudyInstances:
		return []ResourceLevel{LevelSeries, LevelInstance}
	case StudySeriesInstances:
		return []ResourceLevel{LevelInstance}
	default:
		return nil
	}
}

// IsStudyScoped reports whether the route carries a StudyInstanceUID.
func (r ResourceType) IsStudyScoped() bool {
	return r == StudySeries || r == StudyInstances || r == StudySeriesInstances
}

// IsSeriesScoped reports whether the route carries a SeriesInstanceUID.
func (r ResourceType) IsSeriesScoped() bool {
	return r == StudySeriesInstances
}

// InstanceIdentifier identifies one stored instance. Query stores return one
// identifier per matched resource; for study and series matches it names a
// representative instance whose metadata describes the resource.
type InstanceIdentifier struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	Version           int64
}
