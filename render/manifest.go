package render

// Zone names as they appear in the render manifest JSON.
const (
	ZoneHead  = "XRL_head"
	ZoneLeft  = "XRL_left"
	ZoneRight = "XRL_right"
	ZoneMain  = "XRL_main"
	ZoneBelow = "XRL_below"
)

// ImageInfo describes one captured screenshot.
type ImageInfo struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Manifest is the terminal artifact of a render request: one descriptor
// per captured zone element plus the unconditional full-page capture.
// Zone lists keep extraction order and may be empty; Main holds at most
// one entry.
type Manifest struct {
	FullPage ImageInfo   `json:"full_page"`
	Head     []ImageInfo `json:"XRL_head"`
	Left     []ImageInfo `json:"XRL_left"`
	Right    []ImageInfo `json:"XRL_right"`
	Main     []ImageInfo `json:"XRL_main"`
	Below    []ImageInfo `json:"XRL_below"`
}

// newManifest returns a manifest with empty (not nil) zone lists so the
// JSON always carries all five zone keys.
func newManifest() *Manifest {
	return &Manifest{
		Head:  []ImageInfo{},
		Left:  []ImageInfo{},
		Right: []ImageInfo{},
		Main:  []ImageInfo{},
		Below: []ImageInfo{},
	}
}

func (m *Manifest) appendZone(zone string, info ImageInfo) {
	switch zone {
	case ZoneHead:
		m.Head = append(m.Head, info)
	case ZoneLeft:
		m.Left = append(m.Left, info)
	case ZoneRight:
		m.Right = append(m.Right, info)
	case ZoneMain:
		m.Main = append(m.Main, info)
	case ZoneBelow:
		m.Below = append(m.Below, info)
	}
}
