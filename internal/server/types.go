package server

// StatusCode tags each response section as succeeded or failed.
type StatusCode string

const (
	StatusOk   StatusCode = "ok"
	StatusFail StatusCode = "fail"
)

// Request is the RPC envelope. Absent sections are skipped.
type Request struct {
	Get    *GetRequest    `json:"get,omitempty"`
	Set    *SetRequest    `json:"set,omitempty"`
	Delete *DeleteRequest `json:"delete,omitempty"`
}

type GetRequest struct {
	Key string `json:"key"`
}

type SetRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type DeleteRequest struct {
	Key string `json:"key"`
}

// Response mirrors the request envelope: a section appears here exactly
// when the matching section appeared in the request.
type Response struct {
	Get    *GetResponse    `json:"get,omitempty"`
	Set    *SetResponse    `json:"set,omitempty"`
	Delete *DeleteResponse `json:"delete,omitempty"`
}

type GetResponse struct {
	Value  string     `json:"value,omitempty"`
	Error  string     `json:"error,omitempty"`
	Status StatusCode `json:"status"`
}

type SetResponse struct {
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
	Status  StatusCode `json:"status"`
}

type DeleteResponse struct {
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
	Status  StatusCode `json:"status"`
}
