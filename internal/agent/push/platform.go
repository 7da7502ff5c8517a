package push

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/cryptox"
)

// Platform holds the subscription itself, the way a browser's push manager
// does.
type Platform interface {
	// Supported reports common.ErrUnsupported when push cannot work here.
	Supported() error
	// Subscription returns the active subscription or nil.
	Subscription(ctx context.Context) (*models.PushSubscription, error)
	Subscribe(ctx context.Context, applicationServerKey string) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context) error
}

type localSubscription struct {
	ID                   string    `json:"id"`
	Endpoint             string    `json:"endpoint"`
	ApplicationServerKey string    `json:"applicationServerKey"`
	CreatedAt            time.Time `json:"createdAt"`
}

type localKeys struct {
	Private string `json:"private"`
	Auth    string `json:"auth"`
}

// LocalPlatform is a self-hosted push receiver. Its endpoint is
// {publicURL}/push/{id} on the agent; key material lives in metadata.
type LocalPlatform struct {
	meta      metadata.Repository
	publicURL string
	now       func() time.Time
}

func NewLocalPlatform(meta metadata.Repository, publicURL string) *LocalPlatform {
	return &LocalPlatform{meta: meta, publicURL: strings.TrimRight(publicURL, "/"), now: time.Now}
}

func (p *LocalPlatform) Supported() error {
	if p.publicURL == "" {
		return fmt.Errorf("%w: agent has no public url for push delivery", common.ErrUnsupported)
	}
	return nil
}

func (p *LocalPlatform) load(ctx context.Context) (*localSubscription, *cryptox.PushKeys, error) {
	var sub localSubscription
	ok, err := metadata.GetJSON(ctx, p.meta, metadata.KeyPushSubscription, &sub)
	if err != nil || !ok {
		return nil, nil, err
	}

	var lk localKeys
	ok, err = metadata.GetJSON(ctx, p.meta, metadata.KeyPushKeys, &lk)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.New("push subscription without key material")
	}

	priv, err := base64.RawURLEncoding.DecodeString(lk.Private)
	if err != nil {
		return nil, nil, fmt.Errorf("decode push private key: %w", err)
	}
	auth, err := base64.RawURLEncoding.DecodeString(lk.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("decode push auth secret: %w", err)
	}
	keys, err := cryptox.LoadPushKeys(priv, auth)
	if err != nil {
		return nil, nil, err
	}
	return &sub, keys, nil
}

func toModel(sub *localSubscription, keys *cryptox.PushKeys) *models.PushSubscription {
	return &models.PushSubscription{
		Endpoint: sub.Endpoint,
		Keys:     models.PushKeys{P256dh: keys.P256dh(), Auth: keys.AuthSecret()},
	}
}

func (p *LocalPlatform) Subscription(ctx context.Context) (*models.PushSubscription, error) {
	sub, keys, err := p.load(ctx)
	if err != nil || sub == nil {
		return nil, err
	}
	return toModel(sub, keys), nil
}

func (p *LocalPlatform) Subscribe(ctx context.Context, applicationServerKey string) (*models.PushSubscription, error) {
	if err := p.Supported(); err != nil {
		return nil, err
	}
	if _, err := cryptox.DecodeKey(applicationServerKey); err != nil {
		return nil, fmt.Errorf("%w: application server key: %v", common.ErrValidation, err)
	}

	keys, err := cryptox.GeneratePushKeys()
	if err != nil {
		return nil, err
	}
	priv, auth := keys.Marshal()
	defer common.WipeByteArray(priv)

	err = metadata.SetJSON(ctx, p.meta, metadata.KeyPushKeys, localKeys{
		Private: base64.RawURLEncoding.EncodeToString(priv),
		Auth:    base64.RawURLEncoding.EncodeToString(auth),
	})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	sub := &localSubscription{
		ID:                   id,
		Endpoint:             p.publicURL + "/push/" + id,
		ApplicationServerKey: applicationServerKey,
		CreatedAt:            p.now().UTC(),
	}
	if err := metadata.SetJSON(ctx, p.meta, metadata.KeyPushSubscription, sub); err != nil {
		_ = p.meta.Delete(ctx, metadata.KeyPushKeys)
		return nil, err
	}
	return toModel(sub, keys), nil
}

func (p *LocalPlatform) Unsubscribe(ctx context.Context) error {
	if err := p.meta.Delete(ctx, metadata.KeyPushSubscription); err != nil {
		return err
	}
	return p.meta.Delete(ctx, metadata.KeyPushKeys)
}

// Receive authenticates and decrypts one message delivered to
// {publicURL}/push/{id}. An empty body is a push without data and yields nil.
// A message for an id that is not the active subscription returns
// common.ErrNotFound.
func (p *LocalPlatform) Receive(ctx context.Context, id string, header http.Header, body []byte) ([]byte, error) {
	sub, keys, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.ID != id {
		return nil, common.ErrNotFound
	}

	aud, err := cryptox.Audience(sub.Endpoint)
	if err != nil {
		return nil, err
	}
	if _, err := cryptox.VerifyVAPID(header.Get("Authorization"), sub.ApplicationServerKey, aud, p.now()); err != nil {
		return nil, err
	}

	if len(body) == 0 {
		return nil, nil
	}
	if enc := header.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "aes128gcm") {
		return nil, fmt.Errorf("%w: content encoding %q", cryptox.ErrMalformedPayload, enc)
	}
	return keys.Decrypt(body)
}
