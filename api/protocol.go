package api

const maxBodySize = 64 * 1024 // 64 KiB

const msgNotSupported = "Operation not supported."

// Error response body.
type messageResponse struct {
	Message string `json:"message"`
}
