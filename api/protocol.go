package api

import "boardsync/gateway"

const taskBodyMaxSize = 64 * 1024 // 64 KiB
const intentsBodyMaxSize = 256 * 1024

// taskBody is the REST shape of a partial task field set; it shares the
// event surface's raw-field handling for explicit nulls.
type taskBody = gateway.TaskPayload

type intentsResponse struct {
	Accepted int `json:"accepted"`
}
