package protocol

// MethodCall is a single named call received on the method channel.
// Args is carried for forward compatibility; none of the current
// methods take arguments and the payload is ignored.
type MethodCall struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args,omitempty"`
}

// Response status values. A method the dispatcher does not recognize
// yields StatusNotImplemented rather than a transport error.
const (
	StatusOK             = "ok"
	StatusNotImplemented = "not_implemented"
)

// MethodResponse is the reply for one MethodCall. Result is present
// only when Status is StatusOK.
type MethodResponse struct {
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
}

// OK wraps a successful result value.
func OK(result any) MethodResponse {
	return MethodResponse{Status: StatusOK, Result: result}
}

// NotImplemented is the reply for unrecognized method names.
func NotImplemented() MethodResponse {
	return MethodResponse{Status: StatusNotImplemented}
}

const (
	// SubjectHostAnnounce carries engine availability announcements.
	SubjectHostAnnounce = "alouette.host.announce"
	// SubjectHostHeartbeatPrefix is suffixed with the node ID.
	SubjectHostHeartbeatPrefix = "alouette.host.heartbeat"
)
