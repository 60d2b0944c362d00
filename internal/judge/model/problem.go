package model

// Problem is a resolved test-case manifest for one problem.
// Immutable once resolved; loaded per judge run.
type Problem struct {
	ID          string     `json:"id"`
	DatasetID   string     `json:"dataset_id"`
	TimeLimitMS int        `json:"time_limit_ms"`
	FileIOName  string     `json:"file_io_name"`
	Tests       []TestCase `json:"tests"`
}

// TestCase is one entry of a problem's test manifest. Index is 1-based and
// stable; it is the correlation key for streamed results. Result delivery
// order is not guaranteed to match index order.
type TestCase struct {
	Index     int    `json:"index"`
	InputKey  string `json:"input_key"`
	AnswerKey string `json:"answer_key"`
}

// DatasetConfig mirrors the per-dataset config.json document stored alongside
// the test data.
type DatasetConfig struct {
	TimeLimitMS int           `json:"time_limit_ms"`
	Shortname   string        `json:"shortname"`
	Tests       []DatasetTest `json:"tests"`
}

// DatasetTest names the input/output files of one test case, relative to the
// dataset prefix.
type DatasetTest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}
