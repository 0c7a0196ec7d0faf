// Package normalizer maps raw input variants into canonical events, running
// risk and intent classification as it does so.
package normalizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fluxgate-io/fluxgate/internal/faults"
	"github.com/fluxgate-io/fluxgate/internal/models"
	"github.com/fluxgate-io/fluxgate/internal/trust"
	"github.com/fluxgate-io/fluxgate/pkg/logging"
)

// Normalizer converts one raw input variant into a canonical event. The
// returned scan content is the variant's text surface used for risk scanning.
type Normalizer interface {
	Supports(kind models.InputKind) bool
	Normalize(ctx context.Context, input *models.RawInput) (*models.CanonicalEvent, string, error)
}

// Registry holds ordered normalizers and finds a match for a given input.
type Registry struct {
	items []Normalizer
}

// NewRegistry constructs a registry with the provided normalizers.
func NewRegistry(items ...Normalizer) *Registry {
	return &Registry{items: items}
}

// Find returns the first normalizer that supports the input kind.
func (r *Registry) Find(kind models.InputKind) Normalizer {
	if r == nil {
		return nil
	}
	for _, n := range r.items {
		if n.Supports(kind) {
			return n
		}
	}
	return nil
}

// Service runs variant normalization, the device integrity gate, and risk
// classification, producing a fully classified canonical event.
type Service struct {
	registry  *Registry
	integrity trust.IntegrityChecker
	scanner   *RiskScanner
	logger    *logging.Logger
}

// NewService creates a normalizer service. DefaultRegistry covers all input
// variants; a custom registry may replace it in tests.
func NewService(registry *Registry, integrity trust.IntegrityChecker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		registry:  registry,
		integrity: integrity,
		scanner:   NewRiskScanner(),
		logger:    logger,
	}
}

// DefaultRegistry returns a registry covering every input variant.
func DefaultRegistry() *Registry {
	return NewRegistry(
		TextNormalizer{},
		VoiceNormalizer{},
		WebhookNormalizer{},
		DeviceNormalizer{},
	)
}

// Normalize converts the input into a canonical event carrying the given
// correlation ID. Device inputs are integrity-checked first; a failed check
// raises a security error before normalization completes.
func (s *Service) Normalize(ctx context.Context, correlationID string, input *models.RawInput) (*models.CanonicalEvent, error) {
	if input.Kind.IsDevice() {
		if err := s.integrity.Verify(ctx, input.Device.DeviceID, input.Device.Value); err != nil {
			return nil, faults.NewSecurityError(faults.CodeDeviceIntegrityFailed,
				fmt.Sprintf("device %s failed integrity check: %v", input.Device.DeviceID, err))
		}
	}

	n := s.registry.Find(input.Kind)
	if n == nil {
		return nil, fmt.Errorf("no normalizer registered for input kind %q", input.Kind)
	}

	event, scanContent, err := n.Normalize(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", input.Kind, err)
	}

	event.EventID = uuid.New().String()
	event.CorrelationID = correlationID
	if event.Metadata.RiskLane == "" {
		event.Metadata.RiskLane = models.LaneGreen
	}

	s.classify(ctx, event, scanContent)

	return event, nil
}

// classify applies intent detection and actuation-capability checks, only
// ever escalating the event's risk lane.
func (s *Service) classify(ctx context.Context, event *models.CanonicalEvent, scanContent string) {
	intents := s.scanner.Scan(scanContent)
	if len(intents) > 0 {
		event.Metadata.DetectedIntents = intents
		event.Metadata.RequiresApproval = true
		event.Metadata.RiskLane = event.Metadata.RiskLane.Escalate(models.LaneRed)

		s.logger.WarnContext(ctx, "high-risk intent detected",
			logging.EventID(event.EventID),
			"intents", intents,
		)
	}

	if hasActuationCapability(event.Metadata.Capabilities) {
		event.Metadata.RequiresApproval = true
		event.EventType = "device.actuation_intent"

		s.logger.WarnContext(ctx, "actuation capability requires approval",
			logging.EventID(event.EventID),
			"device_type", event.Metadata.DeviceType,
		)
	}
}
