package schemas

// ChartMetadata is the slice of the explore response the dispatch pipeline
// needs: the dataset handle for the data query and the display fields for the
// email subject.
type ChartMetadata struct {
	DatasourceID    int
	DatasourceType  string
	DatasourceName  string
	FormData        map[string]interface{}
	AllColumns      []string
	GranularitySQLA string
	TimeGrainSQLA   string
	URLParams       map[string]interface{}
}

// ExploreResponse mirrors GET /api/v1/explore/.
type ExploreResponse struct {
	Result ExploreResult `json:"result"`
}

type ExploreResult struct {
	Dataset  ExploreDataset         `json:"dataset"`
	FormData map[string]interface{} `json:"form_data"`
}

type ExploreDataset struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ChartDataRequest is the envelope of POST /api/v1/chart/data.
type ChartDataRequest struct {
	Datasource   ChartDatasource        `json:"datasource"`
	Queries      []ChartDataQuery       `json:"queries"`
	FormData     map[string]interface{} `json:"form_data"`
	ResultFormat string                 `json:"result_format"`
	ResultType   string                 `json:"result_type"`
	Force        string                 `json:"force"`
}

type ChartDatasource struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

type ChartDataQuery struct {
	Columns           []string               `json:"columns"`
	Filters           []interface{}          `json:"filters"`
	OrderBy           []interface{}          `json:"orderby"`
	Granularity       string                 `json:"granularity"`
	Extras            ChartDataExtras        `json:"extras"`
	TimeRange         string                 `json:"time_range"`
	RowLimit          int                    `json:"row_limit"`
	SeriesLimit       int                    `json:"series_limit"`
	OrderDesc         bool                   `json:"order_desc"`
	URLParams         map[string]interface{} `json:"url_params"`
	PostProcessing    []interface{}          `json:"post_processing"`
	AppliedTimeExtras map[string]interface{} `json:"applied_time_extras"`
	CustomParams      map[string]interface{} `json:"custom_params"`
	CustomFormData    map[string]interface{} `json:"custom_form_data"`
	AnnotationLayers  []interface{}          `json:"annotation_layers"`
}

type ChartDataExtras struct {
	Having        string `json:"having"`
	Where         string `json:"where"`
	TimeGrainSQLA string `json:"time_grain_sqla"`
}

type ChartDataResponse struct {
	Result []ChartDataResult `json:"result"`
}

type ChartDataResult struct {
	Data []map[string]interface{} `json:"data"`
}
