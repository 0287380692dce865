package dispatch

// Method enumerates the calls the dispatcher understands. Dispatch
// switches over this type so the supported set lives in one place;
// raw method names appear only here.
type Method int

const (
	MethodUnknown Method = iota
	MethodIsEdgeTTSAvailable
	MethodGetAvailableTTSEngines
	MethodGetPlatformVersion
)

// ParseMethod maps a wire method name onto the enum. Unrecognized
// names parse to MethodUnknown; the dispatcher answers those with a
// not-implemented response.
func ParseMethod(name string) Method {
	switch name {
	case "isEdgeTTSAvailable":
		return MethodIsEdgeTTSAvailable
	case "getAvailableTTSEngines":
		return MethodGetAvailableTTSEngines
	case "getPlatformVersion":
		return MethodGetPlatformVersion
	default:
		return MethodUnknown
	}
}

func (m Method) String() string {
	switch m {
	case MethodIsEdgeTTSAvailable:
		return "isEdgeTTSAvailable"
	case MethodGetAvailableTTSEngines:
		return "getAvailableTTSEngines"
	case MethodGetPlatformVersion:
		return "getPlatformVersion"
	default:
		return "unknown"
	}
}
