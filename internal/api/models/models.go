package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-08-23T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"build-456" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version used for build"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler used"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Session models
type SessionData struct {
	ID              string `json:"id" example:"decode-1" doc:"Session identifier"`
	Role            string `json:"role" example:"decode" doc:"Accelerator role"`
	InputStreaming  bool   `json:"input_streaming" example:"true" doc:"Whether the input queue is streaming"`
	OutputStreaming bool   `json:"output_streaming" example:"true" doc:"Whether the output queue is streaming"`
	BuffersIn       uint64 `json:"buffers_in" example:"1024" doc:"Source buffers processed"`
	BuffersOut      uint64 `json:"buffers_out" example:"1020" doc:"Destination buffers processed"`
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Open codec sessions"`
	Count    int           `json:"count" example:"2" doc:"Number of open sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

type SessionOpenData struct {
	Role string `json:"role" example:"decode" doc:"Accelerator role: decode, encode, isp, deinterlace, or encode-image"`
}

type SessionOpenRequest struct {
	Body SessionOpenData
}

type SessionResponse struct {
	Body SessionData
}

// Format models
type FormatData struct {
	FourCC     string `json:"fourcc" example:"H264" doc:"Pixel format four-character code"`
	Depth      uint32 `json:"depth" example:"8" doc:"Bits per pixel on the first plane"`
	Compressed bool   `json:"compressed" example:"true" doc:"Whether the format is a compressed bitstream"`
	Bayer      bool   `json:"bayer" example:"false" doc:"Whether the format is a raw sensor pattern"`
}

type FormatListData struct {
	Role      string       `json:"role" example:"decode" doc:"Accelerator role"`
	Direction string       `json:"direction" example:"input" doc:"Queue: input or output"`
	Formats   []FormatData `json:"formats" doc:"Supported pixel formats"`
	Count     int          `json:"count" example:"8" doc:"Number of supported formats"`
}

type FormatListResponse struct {
	Body FormatListData
}

// SSE models
type ConnectionData struct {
	Message   string `json:"message" example:"SSE connection established" doc:"Connection status message"`
	Timestamp string `json:"timestamp" example:"2026-08-23T10:30:00Z" doc:"Connection timestamp"`
}
