package push

import (
	"context"
	"time"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// PermissionAsker obtains the user's consent to show notifications.
type PermissionAsker interface {
	State(ctx context.Context) (Permission, error)
	Request(ctx context.Context) (Permission, error)
}

// Permissions asks attached foreground contexts with REQUEST_PERMISSION.
// A grant is remembered in metadata; a denial is only reported, so the next
// request asks again.
type Permissions struct {
	hub     *bridge.Hub
	meta    metadata.Repository
	timeout time.Duration
	log     logging.Logger
}

func NewPermissions(hub *bridge.Hub, meta metadata.Repository, timeout time.Duration, log logging.Logger) *Permissions {
	return &Permissions{hub: hub, meta: meta, timeout: timeout, log: log.With("module", "permissions")}
}

func (p *Permissions) State(ctx context.Context) (Permission, error) {
	raw, err := p.meta.Get(ctx, metadata.KeyNotificationPermission)
	if err != nil {
		return PermissionDefault, err
	}
	if Permission(raw) == PermissionGranted {
		return PermissionGranted, nil
	}
	return PermissionDefault, nil
}

// Request returns the remembered grant or asks the foreground. The first
// context to answer decides; a context that dismisses the prompt (reply with
// Error set) does not count as an answer. No answer counts as denied.
func (p *Permissions) Request(ctx context.Context) (Permission, error) {
	st, err := p.State(ctx)
	if err != nil || st == PermissionGranted {
		return st, err
	}

	actx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	for reply := range p.hub.Broadcast(actx, bridge.Message{Kind: bridge.KindRequestPermission}) {
		if reply.Err != nil || reply.Message.Error != "" {
			continue
		}
		if !reply.Message.Granted {
			p.log.Info(ctx, "notification permission denied", "client", reply.From)
			return PermissionDenied, nil
		}
		if err := p.meta.Set(ctx, metadata.KeyNotificationPermission, []byte(PermissionGranted)); err != nil {
			return PermissionDefault, err
		}
		p.log.Info(ctx, "notification permission granted", "client", reply.From)
		return PermissionGranted, nil
	}

	p.log.Info(ctx, "no foreground answered the permission request")
	return PermissionDenied, nil
}

// Revoke forgets a remembered grant.
func (p *Permissions) Revoke(ctx context.Context) error {
	return p.meta.Delete(ctx, metadata.KeyNotificationPermission)
}
