package identity

import (
	"encoding/json"
	"fmt"

	"parley/internal/crypto"
)

// userProfile is the JSON shape of a persisted user. It carries private key
// PEMs and therefore only ever exists inside the encrypted profile envelope
// written by the store.
type userProfile struct {
	ID       string          `json:"id"`
	Nickname string          `json:"nickname"`
	EncKey   string          `json:"enc_key"`
	SigKey   string          `json:"sig_key"`
	Friends  []friendProfile `json:"friends"`
}

type friendProfile struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	PubKey   string    `json:"pub_key"`
	VerKey   string    `json:"ver_key"`
	Messages []Message `json:"messages,omitempty"`
}

// MarshalJSON serializes the user, both private keys, and every friend with
// its message history.
func (u *User) MarshalJSON() ([]byte, error) {
	encPEM, err := u.encKey.PrivatePEM()
	if err != nil {
		return nil, err
	}
	sigPEM, err := u.sigKey.PrivatePEM()
	if err != nil {
		return nil, err
	}
	profile := userProfile{
		ID:       u.ID,
		Nickname: u.Nickname,
		EncKey:   encPEM,
		SigKey:   sigPEM,
	}
	for _, f := range u.Friends() {
		pubPEM, err := f.encKey.PublicPEM()
		if err != nil {
			return nil, err
		}
		verPEM, err := f.verKey.PublicPEM()
		if err != nil {
			return nil, err
		}
		profile.Friends = append(profile.Friends, friendProfile{
			ID:       f.ID,
			Nickname: f.Nickname,
			PubKey:   pubPEM,
			VerKey:   verPEM,
			Messages: f.Messages(),
		})
	}
	return json.Marshal(profile)
}

// UnmarshalJSON restores a user persisted by MarshalJSON.
func (u *User) UnmarshalJSON(data []byte) error {
	var profile userProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return err
	}
	if profile.ID == "" {
		return fmt.Errorf("user profile: id is empty")
	}
	encKey, err := crypto.FromPrivatePEM(profile.EncKey, crypto.ModeEncryptDecrypt)
	if err != nil {
		return fmt.Errorf("profile encryption key: %w", err)
	}
	sigKey, err := crypto.FromPrivatePEM(profile.SigKey, crypto.ModeVerifySign)
	if err != nil {
		return fmt.Errorf("profile signing key: %w", err)
	}
	u.ID = profile.ID
	u.Nickname = profile.Nickname
	u.encKey = encKey
	u.sigKey = sigKey
	u.friends = make(map[string]*Friend, len(profile.Friends))
	for _, fp := range profile.Friends {
		pubKey, err := crypto.FromPublicPEM(fp.PubKey, crypto.ModeEncrypt)
		if err != nil {
			return fmt.Errorf("profile friend %s: %w", fp.ID, err)
		}
		verKey, err := crypto.FromPublicPEM(fp.VerKey, crypto.ModeVerify)
		if err != nil {
			return fmt.Errorf("profile friend %s: %w", fp.ID, err)
		}
		u.friends[fp.ID] = &Friend{
			ID:       fp.ID,
			Nickname: fp.Nickname,
			encKey:   pubKey,
			verKey:   verKey,
			messages: fp.Messages,
		}
	}
	return nil
}
