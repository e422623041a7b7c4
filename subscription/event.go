package subscription

// Event is the change announcement broadcast after a successful write.
// Category names the collection that changed; Origin identifies the emitting
// process so a view can tell its own writes apart from remote ones.
type Event struct {
	Category string `json:"category"`
	Origin   string `json:"origin,omitempty"`
}
