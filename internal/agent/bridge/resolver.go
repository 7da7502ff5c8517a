package bridge

import (
	"context"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/cryptox"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

// Resolver finds a bearer token for background work.
type Resolver struct {
	hub     *Hub
	meta    metadata.Repository
	timeout time.Duration
	log     logging.Logger
	now     func() time.Time
}

func NewResolver(hub *Hub, meta metadata.Repository, timeout time.Duration, log logging.Logger) *Resolver {
	return &Resolver{hub: hub, meta: meta, timeout: timeout, log: log.With("module", "credentials"), now: time.Now}
}

// ResolveToken asks every attached context for its token and takes the first
// non-empty answer. Without one it falls back to the persisted snapshot,
// ignoring a snapshot whose exp has passed. common.ErrNoCredential means
// neither source had a token.
func (r *Resolver) ResolveToken(ctx context.Context) (string, error) {
	if tok := r.ask(ctx); tok != "" {
		return tok, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := r.meta.Get(ctx, metadata.KeyTokenSnapshot)
	if err != nil {
		return "", err
	}
	tok := string(raw)
	if tok == "" {
		return "", common.ErrNoCredential
	}
	if cryptox.TokenExpired(tok, r.now()) {
		r.log.Info(ctx, "token snapshot expired")
		return "", common.ErrNoCredential
	}

	r.log.Debug(ctx, "token resolved from snapshot")
	return tok, nil
}

func (r *Resolver) ask(ctx context.Context) string {
	if r.hub == nil {
		return ""
	}

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for reply := range r.hub.Broadcast(actx, Message{Kind: KindGetToken}) {
		if reply.Err != nil {
			r.log.Debug(ctx, "token request failed", "client", reply.From, "error", reply.Err)
			continue
		}
		if reply.Message.Token != "" {
			r.log.Debug(ctx, "token resolved from client", "client", reply.From)
			return reply.Message.Token
		}
	}
	return ""
}
