package channel

type Type string

const (
	TypeMsg  Type = "msg"
	TypeJoin Type = "join"
	TypePart Type = "part"
)

// Message is immutable once appended. Timestamp is in milliseconds since epoch
// and strictly increases in append order.
type Message struct {
	Nick      string `json:"nick"`
	Type      Type   `json:"type"`
	Text      string `json:"text,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
