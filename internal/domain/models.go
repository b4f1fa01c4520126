package domain

// PlayerStatus represents the current state of the media player
type PlayerStatus string

const (
	// StatusPlaying indicates the media is currently playing
	StatusPlaying PlayerStatus = "Playing"
	// StatusPaused indicates the media is paused
	StatusPaused PlayerStatus = "Paused"
	// StatusStopped indicates the media is stopped
	StatusStopped PlayerStatus = "Stopped"
)

// MediaMetadata contains information about the currently playing media
type MediaMetadata struct {
	// Title of the currently playing track
	Title string
	// Artist name
	Artist string
	// Album name
	Album string
	// AlbumArtist is the artist credited for the whole album
	AlbumArtist string
	// File is the daemon-relative path or stream URL of the track
	File string
	// Status is the current playback status
	Status PlayerStatus
}

// HTTPResponse is the final result of one HTTP exchange
type HTTPResponse struct {
	StatusCode int
	Header     map[string][]string
	Body       []byte
}

// OK reports whether the exchange ended with status 200
func (r *HTTPResponse) OK() bool {
	return r != nil && r.StatusCode == 200
}
