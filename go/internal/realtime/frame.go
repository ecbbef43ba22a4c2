package realtime

// FrameType tags a websocket frame sent by the gateway.
type FrameType string

const (
	// FrameSubscribed is the first frame on a room socket. Changes committed
	// after it are guaranteed to follow on the same socket.
	FrameSubscribed FrameType = "subscribed"
	FrameChange     FrameType = "change"
)

// Frame is the JSON message on a room websocket.
type Frame struct {
	Type   FrameType `json:"type"`
	RoomID string    `json:"room_id"`
	Change *Change   `json:"change,omitempty"`
}
