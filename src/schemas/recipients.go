package schemas

// Recipient is one resolved report audience member. DisplayName and Email are
// already decrypted.
type Recipient struct {
	UserUUID    string
	DisplayName string
	Email       string
}
