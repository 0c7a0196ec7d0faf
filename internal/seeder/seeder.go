// Package seeder generates synthetic raw inputs and posts them to a running
// ingest endpoint. Intended for development and load testing only.
package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// Generator produces random raw inputs across all variants.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the given value.
func NewGenerator(seed int64) *Generator {
	gofakeit.Seed(seed)
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

var kinds = []models.InputKind{
	models.KindText,
	models.KindVoice,
	models.KindWebhook,
	models.KindDeviceMatter,
	models.KindDeviceZigbee,
	models.KindDeviceMQTT,
}

// Next returns one random raw input.
func (g *Generator) Next() *models.RawInput {
	kind := kinds[g.rng.Intn(len(kinds))]
	userID := gofakeit.UUID()

	switch kind {
	case models.KindText:
		return &models.RawInput{
			Kind: kind,
			Text: &models.TextInput{
				Content: g.sentence(),
				Source:  pick(g.rng, "web", "sms"),
				UserID:  userID,
			},
		}
	case models.KindVoice:
		return &models.RawInput{
			Kind: kind,
			Voice: &models.VoiceInput{
				Transcript: g.sentence(),
				Confidence: g.rng.Float64(),
				AudioURL:   gofakeit.URL(),
				DurationMS: int64(g.rng.Intn(30000)),
				UserID:     userID,
			},
		}
	case models.KindWebhook:
		return &models.RawInput{
			Kind: kind,
			Webhook: &models.WebhookInput{
				Payload: map[string]any{
					"action": gofakeit.Verb(),
					"actor":  gofakeit.Username(),
					"ip":     gofakeit.IPv4Address(),
				},
				Provider:  pick(g.rng, "calendar", "storage", "messaging"),
				Signature: gofakeit.UUID(),
				UserID:    userID,
			},
		}
	case models.KindDeviceMatter:
		value, _ := json.Marshal(map[string]any{"state": g.rng.Intn(2)})
		return &models.RawInput{
			Kind: kind,
			Device: &models.DeviceInput{
				DeviceID:    gofakeit.UUID(),
				NodeID:      fmt.Sprintf("%d", g.rng.Intn(64)),
				EndpointID:  g.rng.Intn(8),
				ClusterID:   pick(g.rng, "0x0101", "0x0055", "0x0402"),
				AttributeID: fmt.Sprintf("0x%04x", g.rng.Intn(16)),
				Value:       value,
				UserID:      userID,
			},
		}
	case models.KindDeviceZigbee:
		value, _ := json.Marshal(map[string]any{"level": g.rng.Intn(255)})
		return &models.RawInput{
			Kind: kind,
			Device: &models.DeviceInput{
				DeviceID:  gofakeit.UUID(),
				ClusterID: pick(g.rng, "257", "6", "1026"),
				Value:     value,
				UserID:    userID,
			},
		}
	default:
		value, _ := json.Marshal(map[string]any{"reading": g.rng.Float64() * 100})
		return &models.RawInput{
			Kind: kind,
			Device: &models.DeviceInput{
				DeviceID: gofakeit.UUID(),
				Topic:    fmt.Sprintf("home/%s/%s", gofakeit.Word(), pick(g.rng, "temperature", "lock", "motion")),
				Value:    value,
				UserID:   userID,
			},
		}
	}
}

// sentence occasionally includes a high-risk phrase so seeded traffic
// exercises the RED lane.
func (g *Generator) sentence() string {
	if g.rng.Intn(10) == 0 {
		return fmt.Sprintf("please %s my %s", pick(g.rng, "delete", "transfer"), gofakeit.NounConcrete())
	}
	return gofakeit.Sentence(8)
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}

// Runner posts generated inputs to an ingest endpoint.
type Runner struct {
	generator *Generator
	endpoint  string
	token     string
	client    *http.Client
}

// NewRunner creates a runner targeting the given base URL.
func NewRunner(generator *Generator, baseURL, token string) *Runner {
	return &Runner{
		generator: generator,
		endpoint:  baseURL + "/api/v1/ingest",
		token:     token,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Run posts count inputs, pausing interval between sends. It returns the
// number of accepted sends and the first hard failure, if any.
func (r *Runner) Run(ctx context.Context, count int, interval time.Duration) (int, error) {
	sent := 0
	for i := 0; i < count; i++ {
		if err := r.send(ctx, r.generator.Next()); err != nil {
			return sent, err
		}
		sent++

		if interval > 0 && i < count-1 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return sent, nil
}

func (r *Runner) send(ctx context.Context, input *models.RawInput) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	// Forbidden means the trust gate rejected the identity, which is a
	// valid outcome for seeded traffic.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusForbidden {
		return fmt.Errorf("ingest returned status %d", resp.StatusCode)
	}
	return nil
}
