package instance

import (
	"context"

	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
)

// Identity is the device identity attached to an instance
type Identity struct {
	DeviceID  string
	PublicKey string
}

// AttachIdentity stores the device private key used to sign challenges,
// together with the derived public key and device id
func (u *UseCase) AttachIdentity(ctx context.Context, id model.RecordID, privateKeyPEM string) (*Identity, error) {
	key, err := gateway.ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	pub, err := gateway.EncodePublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	deviceID, err := gateway.Fingerprint(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	if err := u.repo.Update(ctx, func(ds *model.Dataset) error {
		rec, err := findInstance(ds, id)
		if err != nil {
			return err
		}
		rec.SetFields(map[string]any{
			"devicePrivateKey": privateKeyPEM,
			"devicePublicKey":  pub,
			"deviceId":         deviceID,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	return &Identity{DeviceID: deviceID, PublicKey: pub}, nil
}

// GenerateIdentity creates a new RSA device key and attaches it
func (u *UseCase) GenerateIdentity(ctx context.Context, id model.RecordID) (*Identity, error) {
	if _, err := u.Get(ctx, id); err != nil {
		return nil, err
	}
	_, pemText, err := gateway.GenerateKey()
	if err != nil {
		return nil, err
	}
	return u.AttachIdentity(ctx, id, pemText)
}
