package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/storysync/internal/agent/bridge"
	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

type State string

const (
	StateUnsubscribed        State = "unsubscribed"
	StatePermissionRequested State = "permission-requested"
	StateSubscribed          State = "subscribed"
	StateUnsubscribing       State = "unsubscribing"
)

// Registrar is the server side of a subscription.
type Registrar interface {
	SubscribePush(ctx context.Context, token string, sub models.PushSubscription) error
	UnsubscribePush(ctx context.Context, token, endpoint string) error
}

type TokenResolver interface {
	ResolveToken(ctx context.Context) (string, error)
}

// Clients is the registry of open foreground contexts.
type Clients interface {
	MatchAll() []bridge.ClientInfo
	Focus(ctx context.Context, id string) error
	OpenWindow(ctx context.Context, url string) error
}

type Status struct {
	State      State                    `json:"state"`
	Enabled    bool                     `json:"enabled"`
	Permission Permission               `json:"permission"`
	Endpoint   string                   `json:"endpoint,omitempty"`
	Sub        *models.PushSubscription `json:"subscription,omitempty"`
}

type Manager struct {
	platform  Platform
	perms     PermissionAsker
	registrar Registrar
	tokens    TokenResolver
	meta      metadata.Repository
	center    *notify.Center
	clients   Clients
	serverKey string
	log       logging.Logger

	mu    sync.Mutex
	state State
}

type Deps struct {
	Platform    Platform
	Permissions PermissionAsker
	Registrar   Registrar
	Tokens      TokenResolver
	Meta        metadata.Repository
	Center      *notify.Center
	Clients     Clients
	// ServerKey is the story server's VAPID public key.
	ServerKey string
}

func NewManager(d Deps, log logging.Logger) *Manager {
	return &Manager{
		platform:  d.Platform,
		perms:     d.Permissions,
		registrar: d.Registrar,
		tokens:    d.Tokens,
		meta:      d.Meta,
		center:    d.Center,
		clients:   d.Clients,
		serverKey: d.ServerKey,
		log:       log.With("module", "push"),
		state:     StateUnsubscribed,
	}
}

func (m *Manager) supported() error {
	if m.platform == nil || m.center == nil {
		return common.ErrUnsupported
	}
	if err := m.platform.Supported(); err != nil {
		if errors.Is(err, common.ErrUnsupported) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrUnsupported, err)
	}
	return nil
}

func (m *Manager) setState(s State) {
	m.state = s
}

// Subscribe returns the active subscription, creating and registering one
// when there is none. The subscription is only kept once the story server
// accepted it.
func (m *Manager) Subscribe(ctx context.Context) (*models.PushSubscription, error) {
	if err := m.supported(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.platform.Subscription(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		m.setState(StateSubscribed)
		return existing, nil
	}

	m.setState(StatePermissionRequested)
	perm, err := m.perms.Request(ctx)
	if err != nil {
		m.setState(StateUnsubscribed)
		return nil, err
	}
	if perm != PermissionGranted {
		m.setState(StateUnsubscribed)
		return nil, common.ErrPermissionDenied
	}

	token, err := m.tokens.ResolveToken(ctx)
	if err != nil {
		m.setState(StateUnsubscribed)
		return nil, err
	}

	sub, err := m.platform.Subscribe(ctx, m.serverKey)
	if err != nil {
		m.setState(StateUnsubscribed)
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	if err := m.registrar.SubscribePush(ctx, token, *sub); err != nil {
		m.rollback(ctx)
		return nil, fmt.Errorf("register subscription: %w", err)
	}

	if err := metadata.SetBool(ctx, m.meta, metadata.KeyPushEnabled, true); err != nil {
		m.log.Warn(ctx, "failed to persist push flag", "error", err)
	}

	m.setState(StateSubscribed)
	m.center.Show(ctx, notify.Notification{
		Title: "Push notifications enabled",
		Body:  "You will be notified when new stories are shared.",
		Icon:  "/images/logo.png",
		Badge: "/images/logo.png",
		Tag:   "subscribe-success",
	})
	m.log.Info(ctx, "push subscribed", "endpoint", sub.Endpoint)
	return sub, nil
}

func (m *Manager) rollback(ctx context.Context) {
	if err := m.platform.Unsubscribe(ctx); err != nil {
		m.log.Error(ctx, "failed to roll back local subscription", "error", err)
		m.setState(StateSubscribed)
		return
	}
	m.setState(StateUnsubscribed)
}

// Unsubscribe deregisters and releases the subscription. Deregistration
// failures are logged and do not keep the local subscription alive.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	if err := m.supported(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub, err := m.platform.Subscription(ctx)
	if err != nil {
		return err
	}
	if sub == nil {
		m.setState(StateUnsubscribed)
		return nil
	}

	m.setState(StateUnsubscribing)

	if token, err := m.tokens.ResolveToken(ctx); err != nil {
		m.log.Warn(ctx, "deregistration skipped", "error", err)
	} else if err := m.registrar.UnsubscribePush(ctx, token, sub.Endpoint); err != nil {
		m.log.Warn(ctx, "deregistration failed", "endpoint", sub.Endpoint, "error", err)
	}

	if err := m.platform.Unsubscribe(ctx); err != nil {
		m.setState(StateSubscribed)
		return fmt.Errorf("release subscription: %w", err)
	}
	if err := metadata.SetBool(ctx, m.meta, metadata.KeyPushEnabled, false); err != nil {
		m.log.Warn(ctx, "failed to persist push flag", "error", err)
	}

	m.setState(StateUnsubscribed)
	m.center.Show(ctx, notify.Notification{
		Title: "Unsubscribed",
		Body:  "You will no longer receive new story notifications.",
		Icon:  "/images/icon-192x192.png",
		Badge: "/images/icon-96x96.png",
		Tag:   "unsubscribe-success",
	})
	m.log.Info(ctx, "push unsubscribed", "endpoint", sub.Endpoint)
	return nil
}

func (m *Manager) Status(ctx context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{State: m.state, Permission: PermissionDefault}
	if m.perms != nil {
		p, err := m.perms.State(ctx)
		if err != nil {
			return st, err
		}
		st.Permission = p
	}
	enabled, err := metadata.GetBool(ctx, m.meta, metadata.KeyPushEnabled)
	if err != nil {
		return st, err
	}
	st.Enabled = enabled

	if m.supported() != nil {
		return st, nil
	}
	sub, err := m.platform.Subscription(ctx)
	if err != nil {
		return st, err
	}
	if sub != nil {
		st.Sub = sub
		st.Endpoint = sub.Endpoint
		if st.State == StateUnsubscribed {
			st.State = StateSubscribed
		}
	} else if st.State == StateSubscribed {
		st.State = StateUnsubscribed
	}
	return st, nil
}

// HandlePush shows the notification for one incoming push. It always shows
// something, falling back to the defaults for absent or malformed data.
func (m *Manager) HandlePush(ctx context.Context, data []byte) notify.Notification {
	n := m.center.Show(ctx, BuildNotification(data))
	m.log.Info(ctx, "push received", "id", n.ID, "storyId", n.StoryID)
	return n
}

// HandleActivation reacts to a click on a notification. The notification is
// closed; unless the close action was chosen, a context already at the
// target URL is focused and otherwise one is opened there. Clicks on a
// notification that is already gone are ignored.
func (m *Manager) HandleActivation(ctx context.Context, id, action string) error {
	n, err := m.center.Get(id)
	if errors.Is(err, common.ErrNotFound) {
		m.log.Debug(ctx, "activation of unknown notification", "id", id)
		return nil
	}
	if err != nil {
		return err
	}
	m.center.Close(id)

	if action == ActionClose {
		return nil
	}

	target := n.Target()
	for _, c := range m.clients.MatchAll() {
		if c.URL == target {
			return m.clients.Focus(ctx, c.ID)
		}
	}
	return m.clients.OpenWindow(ctx, target)
}

// TestNotification shows a demo notification with both actions.
func (m *Manager) TestNotification(ctx context.Context) notify.Notification {
	return m.center.Show(ctx, notify.Notification{
		Title: "Story App - Demo Notification",
		Body:  "This is a demo. You will be notified when stories are added!",
		Icon:  "/images/logo.png",
		Badge: "/images/logo.png",
		Tag:   "test-notification",
		URL:   common.DefaultTargetURL,
		Actions: []notify.Action{
			{Action: ActionView, Title: "View Story"},
			{Action: ActionClose, Title: "Close"},
		},
	})
}
