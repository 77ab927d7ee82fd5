package identity

// Message is the decrypted, local-only form of one chat message. It never
// leaves the process.
type Message struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// EncryptedMessage is the encrypted-then-signed wire form of one chat
// message. It is the only identity type that crosses the transport boundary.
//
// EncContent and Sig are padding-free standard base64; CreatedAt is epoch
// seconds. Sig covers EncContent, so a payload is never decrypted before its
// signature checks out.
type EncryptedMessage struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	EncContent string `json:"enc_content"`
	CreatedAt  int64  `json:"created_at"`
	Sig        string `json:"sig"`
}
