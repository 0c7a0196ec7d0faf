package gateway

import (
	"context"
	"fmt"

	"github.com/fluxgate-io/fluxgate/internal/delivery"
	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/normalizer"
	"github.com/fluxgate-io/fluxgate/internal/policy"
	"github.com/fluxgate-io/fluxgate/internal/translator"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Deliverer sends a translated batch downstream. Satisfied by
// *delivery.Service.
type Deliverer interface {
	DeliverBatch(ctx context.Context, events []*models.TranslatedEvent, appID, correlationID string) (int, error)
}

var _ Deliverer = (*delivery.Service)(nil)

// DeliveryFailure wraps a delivery error together with the app and the
// translated batch that failed, so the caller can buffer the batch for
// replay without re-running the pipeline.
type DeliveryFailure struct {
	AppID  string
	Events []*models.TranslatedEvent
	Err    error
}

func (f *DeliveryFailure) Error() string {
	return fmt.Sprintf("delivery to app %s failed: %v", f.AppID, f.Err)
}

func (f *DeliveryFailure) Unwrap() error { return f.Err }

// Chain runs the normalize, filter, translate, deliver sequence shared by
// single-event ingress and connector sync.
type Chain struct {
	normalizer *normalizer.Service
	policy     *policy.Engine
	translator *translator.Translator
	delivery   Deliverer
	apps       []string
	logger     *logging.Logger
}

// NewChain wires the pipeline stages together. apps lists the destination
// app IDs events fan out to; when empty, the apps known to the policy
// engine are used.
func NewChain(n *normalizer.Service, p *policy.Engine, t *translator.Translator, d Deliverer, apps []string, logger *logging.Logger) *Chain {
	if logger == nil {
		logger = logging.Default()
	}
	return &Chain{
		normalizer: n,
		policy:     p,
		translator: t,
		delivery:   d,
		apps:       apps,
		logger:     logger,
	}
}

func (c *Chain) destinations() []string {
	if len(c.apps) > 0 {
		return c.apps
	}
	return c.policy.Apps()
}

// Normalize produces the canonical event for one raw input. A suspect
// identity forces the risk lane to RED for the remainder of the run.
func (c *Chain) Normalize(ctx context.Context, correlationID string, input *models.RawInput, forceRed bool) (*models.CanonicalEvent, error) {
	event, err := c.normalizer.Normalize(ctx, correlationID, input)
	if err != nil {
		return nil, err
	}
	if forceRed {
		event.Metadata.RiskLane = event.Metadata.RiskLane.Escalate(models.LaneRed)
	}
	return event, nil
}

// Dispatch filters, translates, and delivers the event to every configured
// destination app. It returns the total number of delivered events; on a
// delivery failure it returns a *DeliveryFailure carrying the batch that
// could not be sent.
func (c *Chain) Dispatch(ctx context.Context, event *models.CanonicalEvent) (int, error) {
	delivered := 0
	for _, appID := range c.destinations() {
		filtered := c.policy.Filter(ctx, []*models.CanonicalEvent{event}, appID)
		if len(filtered) == 0 {
			continue
		}

		translated := c.translator.Translate(ctx, filtered, appID)
		if len(translated) == 0 {
			continue
		}

		n, err := c.delivery.DeliverBatch(ctx, translated, appID, event.CorrelationID)
		delivered += n
		if err != nil {
			return delivered, &DeliveryFailure{AppID: appID, Events: translated, Err: err}
		}
	}
	return delivered, nil
}
