package wsenv

// MessageType identifies a protocol message.
type MessageType string

// Client to server.
const (
	// TypeHello opens a session at URL.
	TypeHello MessageType = "hello"
	// TypeNavigate reports a navigation attempt. Kind is "link", "form"
	// or "download".
	TypeNavigate MessageType = "navigate"
	// TypePopState reports that the client moved through its history to URL.
	TypePopState MessageType = "popstate"
)

// Server to client.
const (
	// TypeIntercept tells the client to push URL without loading it.
	TypeIntercept MessageType = "intercept"
	// TypeDecline tells the client to load URL as a new document.
	TypeDecline MessageType = "decline"
	// TypeTitle sets the document title.
	TypeTitle MessageType = "title"
	// TypeHistory mirrors a history change the client did not start.
	// Mode is "push", "replace" or "traverse".
	TypeHistory MessageType = "history"
	// TypeRender replaces the view with HTML for Route.
	TypeRender MessageType = "render"
	// TypeReload asks the client to reload the page.
	TypeReload MessageType = "reload"
	// TypeError reports a protocol or navigation error.
	TypeError MessageType = "error"
)

// Navigation kinds.
const (
	KindLink     = "link"
	KindForm     = "form"
	KindDownload = "download"
)

// Message is one JSON frame of the session protocol.
type Message struct {
	Type  MessageType `json:"type"`
	URL   string      `json:"url,omitempty"`
	Kind  string      `json:"kind,omitempty"`
	Mode  string      `json:"mode,omitempty"`
	Title string      `json:"title,omitempty"`
	Route string      `json:"route,omitempty"`
	HTML  string      `json:"html,omitempty"`
	Error string      `json:"error,omitempty"`
}
