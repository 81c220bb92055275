package schemas

// MessageResponse is the body shape shared by all dispatch endpoint replies.
type MessageResponse struct {
	Message string `json:"message"`
}
