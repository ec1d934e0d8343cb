package constants

// TaskKind names one unit of model work.
type TaskKind string

const (
	TaskText    TaskKind = "text"
	TaskFormula TaskKind = "formula"
	TaskTable   TaskKind = "table"
	TaskParse   TaskKind = "parse"
)

// SingleTaskKinds holds the kinds served by the single-task OCR endpoints.
var SingleTaskKinds = map[TaskKind]struct{}{
	TaskText:    {},
	TaskFormula: {},
	TaskTable:   {},
}

// IsSingleTask reports whether k is one of the single-task kinds.
func IsSingleTask(k TaskKind) bool {
	_, ok := SingleTaskKinds[k]
	return ok
}

// ResultSuffix returns the filename suffix the model gives the single result
// file of a task, e.g. "_text_result.md".
func (k TaskKind) ResultSuffix() string {
	return "_" + string(k) + "_result.md"
}

func (k TaskKind) String() string { return string(k) }
