package models

// Request is the JSON body accepted by every POST endpoint.
type Request struct {
	URL        string `json:"url"`
	VideoID    string `json:"videoId"`
	Resolution string `json:"resolution"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// VideoURL - the canonical URL that was attempted (extraction failures only)
	VideoURL string `json:"video_url,omitempty"`
}

type AvailableStream struct {
	Resolution *string `json:"resolution"`
	Type       string  `json:"type"`
}

type NoStreamResponse struct {
	Error            string            `json:"error"`
	AvailableStreams []AvailableStream `json:"available_streams"`
}

type DownloadURLResponse struct {
	Success     bool    `json:"success"`
	DownloadURL string  `json:"download_url"`
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Length      *int64  `json:"length"`
	Resolution  string  `json:"resolution"`
	Filesize    *int64  `json:"filesize"`
	MimeType    string  `json:"mime_type"`
}

type VideoInfoResponse struct {
	Success      bool    `json:"success"`
	Title        *string `json:"title"`
	Author       *string `json:"author"`
	Length       *int64  `json:"length"`
	Views        *int64  `json:"views"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	PublishDate  *string `json:"publish_date"`
}

type ResolutionsResponse struct {
	Success     bool     `json:"success"`
	Progressive []string `json:"progressive"`
	All         []string `json:"all"`
}

type StreamInfo struct {
	Itag        int    `json:"itag"`
	MimeType    string `json:"mime_type"`
	Codecs      string `json:"codecs,omitempty"`
	Container   string `json:"container"`
	Resolution  string `json:"resolution,omitempty"`
	Progressive bool   `json:"progressive"`
	HasAudio    bool   `json:"has_audio"`
	HasVideo    bool   `json:"has_video"`
	Filesize    int64  `json:"filesize,omitempty"`
	Bitrate     int    `json:"bitrate,omitempty"`
	FPS         int    `json:"fps,omitempty"`
}

type StreamsResponse struct {
	Success bool         `json:"success"`
	Title   *string      `json:"title"`
	Streams []StreamInfo `json:"streams"`
}
