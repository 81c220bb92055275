package schemas

// SQLLabRequest is the body of POST /api/v1/sqllab/execute/.
type SQLLabRequest struct {
	DatabaseID int    `json:"database_id"`
	SQL        string `json:"sql"`
	RunAsync   bool   `json:"runAsync"`
}

type SQLLabResponse struct {
	Status string                   `json:"status"`
	Data   []map[string]interface{} `json:"data"`
}
