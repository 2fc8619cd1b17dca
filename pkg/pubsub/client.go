// Package pubsub wraps the Pub/Sub v2 client with the storefront's topic
// and subscription names resolved against the configured project.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client owns the underlying connection plus one long-lived publisher per
// topic. Publishers batch in the background, so they are created once and
// stopped on Close.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and fails fast when the orders topic or
// subscription is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	raw, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     raw,
		projectID:  projectID,
		cfg:        cfg,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project":      projectID,
			"topic":        cfg.OrdersTopic,
			"subscription": cfg.OrdersSubscription,
		}), "pubsub client initialized")
	}
	return c, nil
}

type checkedResource struct {
	kind resourceKind
	name string
}

func requiredResources(cfg config.PubSubConfig) []checkedResource {
	var out []checkedResource
	if name := strings.TrimSpace(cfg.OrdersTopic); name != "" {
		out = append(out, checkedResource{kind: kindTopic, name: name})
	}
	if name := strings.TrimSpace(cfg.OrdersSubscription); name != "" {
		out = append(out, checkedResource{kind: kindSubscription, name: name})
	}
	return out
}

// Ping confirms every configured topic and subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	resources := requiredResources(c.cfg)
	if len(resources) == 0 {
		return errors.New("no pubsub topic or subscription configured")
	}
	for _, res := range resources {
		if err := c.exists(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) exists(ctx context.Context, res checkedResource) error {
	full := resourceName(c.projectID, res.kind, res.name)
	var err error
	switch res.kind {
	case kindTopic:
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case kindSubscription:
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s %q does not exist", strings.TrimSuffix(string(res.kind), "s"), res.name)
	}
	return fmt.Errorf("checking %s: %w", full, err)
}

// Publisher returns the shared publisher for a topic ID or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindTopic, topic)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	c.publishers[full] = p
	return p
}

// Subscriber returns a receive handle for a subscription ID or full name.
func (c *Client) Subscriber(subscription string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, kindSubscription, subscription)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) OrdersSubscriber() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.OrdersSubscription)
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, p := range c.publishers {
		p.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a bare ID to projects/{project}/{kind}/{id}. Names
// already carrying a projects/ prefix for the same kind pass through.
func resourceName(projectID string, kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + string(kind) + "/" + name
}
