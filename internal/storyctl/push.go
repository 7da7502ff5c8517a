package storyctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/dmitrijs2005/storysync/internal/agent/push"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelPushes bounds concurrent deliveries of one send.
const maxParallelPushes = 4

type sendResult struct {
	Endpoint string
	Status   int
}

func newPushCmd(rt *runtime) *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Web Push delivery",
	}

	var (
		files   []string
		local   bool
		payload push.Payload
		ttl     int
	)
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a signed push message to one or more subscriptions",
		Long: `Send a VAPID-signed, aes128gcm-encrypted push message.

Subscriptions are read from JSON files ({"endpoint": ..., "keys": {...}}) given
with --subscription, or taken from the agent's own store with --local. The
VAPID public key must match the one the agent was configured with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.opts.VAPIDPrivateKey == "" || rt.opts.VAPIDPublicKey == "" {
				return errors.New("both --vapid-public and --vapid-private are required")
			}

			subs, err := readSubscriptions(files)
			if err != nil {
				return err
			}
			if local {
				sub, err := rt.localSubscription(cmd.Context())
				if err != nil {
					return err
				}
				subs = append(subs, sub)
			}
			if len(subs) == 0 {
				return errors.New("no subscription given, use --subscription or --local")
			}

			body, err := json.Marshal(payload)
			if err != nil {
				return err
			}

			results, err := rt.sendAll(cmd.Context(), http.DefaultClient, body, subs, ttl)
			for _, r := range results {
				printf(cmd.OutOrStdout(), "%d %s\n", r.Status, r.Endpoint)
			}
			return err
		},
	}

	f := send.Flags()
	f.StringSliceVarP(&files, "subscription", "s", nil, "subscription JSON file (repeatable)")
	f.BoolVar(&local, "local", false, "send to the subscription held by the agent store")
	f.StringVar(&rt.opts.VAPIDPublicKey, "vapid-public", rt.opts.VAPIDPublicKey, "VAPID public key")
	f.StringVar(&rt.opts.VAPIDPrivateKey, "vapid-private", rt.opts.VAPIDPrivateKey, "VAPID private key")
	f.StringVar(&rt.opts.Subscriber, "subscriber", rt.opts.Subscriber, "VAPID subscriber contact, an email or https URL")
	f.StringVar(&payload.Title, "title", "New Story Added", "notification title")
	f.StringVar(&payload.Body, "body", "", "notification body")
	f.StringVar(&payload.URL, "url", "", "URL opened on activation")
	f.StringVar(&payload.StoryID, "story", "", "story id the notification refers to")
	f.IntVar(&ttl, "ttl", 60, "push TTL in seconds")

	pushCmd.AddCommand(send)
	return pushCmd
}

func readSubscriptions(files []string) ([]*models.PushSubscription, error) {
	subs := make([]*models.PushSubscription, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var s models.PushSubscription
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		if s.Endpoint == "" || s.Keys.P256dh == "" || s.Keys.Auth == "" {
			return nil, fmt.Errorf("%s: endpoint and keys are required", name)
		}
		subs = append(subs, &s)
	}
	return subs, nil
}

func (rt *runtime) localSubscription(ctx context.Context) (*models.PushSubscription, error) {
	st, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	sub, err := push.NewLocalPlatform(st.Metadata(), rt.opts.AgentURL).Subscription(ctx)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, errors.New("the agent has no push subscription, run \"push on\" in a client first")
	}
	return sub, nil
}

// sendAll delivers body to every subscription. Results keep the input
// order; the first delivery error is returned after all sends finish.
func (rt *runtime) sendAll(ctx context.Context, hc *http.Client, body []byte, subs []*models.PushSubscription, ttl int) ([]sendResult, error) {
	results := make([]sendResult, len(subs))
	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPushes)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			status, err := rt.sendOne(gctx, hc, body, sub, ttl)
			results[i] = sendResult{Endpoint: sub.Endpoint, Status: status}
			if err != nil {
				rt.logger.Warn(ctx, "push delivery failed", "endpoint", sub.Endpoint, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, firstErr
}

func (rt *runtime) sendOne(ctx context.Context, hc *http.Client, body []byte, sub *models.PushSubscription, ttl int) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Keys.Auth, P256dh: sub.Keys.P256dh},
	}, &webpush.Options{
		HTTPClient:      hc,
		Subscriber:      rt.opts.Subscriber,
		VAPIDPublicKey:  rt.opts.VAPIDPublicKey,
		VAPIDPrivateKey: rt.opts.VAPIDPrivateKey,
		TTL:             ttl,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("push service answered %s", resp.Status)
	}
	return resp.StatusCode, nil
}
