// Package notify turns domain events into outbound gateway calls. Delivery
// is best-effort: every failure here is logged and recorded, never
// propagated back to ingestion.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"parcelbox/internal/events"
	"parcelbox/internal/models"
	"parcelbox/internal/store"
)

const configCollection = "notifications"

var (
	ErrNotPaired    = errors.New("not_paired")
	ErrBlocked      = errors.New("blocked")
	ErrNoRecipients = errors.New("no_recipients")
)

// LoadConfig reads the notification configuration. A missing collection
// reads as the zero config (unpaired, nothing to do).
func LoadConfig(ctx context.Context, db store.Store) (models.NotificationConfig, error) {
	doc, err := db.Get(ctx, configCollection)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return models.NotificationConfig{}, nil
		}
		return models.NotificationConfig{}, err
	}

	var cfg models.NotificationConfig
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return models.NotificationConfig{}, fmt.Errorf("decode notification config: %w", err)
	}
	return cfg, nil
}

func SaveConfig(ctx context.Context, db store.Store, cfg models.NotificationConfig) error {
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode notification config: %w", err)
	}
	return db.Put(ctx, configCollection, doc)
}

// Result records the outcome of one dispatch: either a skip with its reason,
// or per-recipient delivery counts with the first failure kept as the
// aggregate error.
type Result struct {
	SkipReason string
	Sent       int
	Failed     int
	FirstErr   error
}

type Dispatcher struct {
	db            store.Store
	gateway       Gateway
	publicBaseURL string
	log           zerolog.Logger
}

func NewDispatcher(db store.Store, gateway Gateway, publicBaseURL string, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		gateway:       gateway,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		log:           log,
	}
}

// Handle is the event-bus entry point. Errors are returned for the bus to
// log but carry no further consequences.
func (d *Dispatcher) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.TypePackageReceived:
		if event.Package == nil {
			return fmt.Errorf("package_received event %s without package", event.ID)
		}
		result := d.DispatchPackageReceived(ctx, *event.Package)
		d.logResult(event, result)
		return result.FirstErr
	case events.TypeSecurityAlert:
		result := d.DispatchSecurityAlert(ctx, event.DeviceID, event.Reason)
		d.logResult(event, result)
		return result.FirstErr
	default:
		d.log.Warn().Str("type", string(event.Type)).Msg("unknown event type")
		return nil
	}
}

func (d *Dispatcher) logResult(event events.Event, result Result) {
	log := d.log.With().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Logger()

	if result.SkipReason != "" {
		log.Info().Str("skip_reason", result.SkipReason).Msg("notification skipped")
		return
	}
	log.Info().Int("sent", result.Sent).Int("failed", result.Failed).Msg("notification dispatched")
}

func (d *Dispatcher) DispatchPackageReceived(ctx context.Context, pkg models.Package) Result {
	caption := fmt.Sprintf(
		"📦 *New package received*\n\n🕐 %s\n📟 Device: %s",
		pkg.Timestamp.Format(time.RFC1123),
		pkg.DeviceID,
	)
	imageURL := d.absoluteURL(pkg.PhotoURL)

	return d.fanOut(ctx, func(recipient string) (string, error) {
		return d.gateway.SendImage(ctx, recipient, caption, imageURL)
	})
}

func (d *Dispatcher) DispatchSecurityAlert(ctx context.Context, deviceID, reason string) Result {
	text := fmt.Sprintf(
		"🚨 *Security alert*\n\nReason: %s\nDevice: %s\nTime: %s",
		reason,
		deviceID,
		time.Now().Format(time.RFC1123),
	)

	return d.fanOut(ctx, func(recipient string) (string, error) {
		return d.gateway.SendText(ctx, recipient, text)
	})
}

// fanOut checks the skip preconditions in their fixed order, then attempts
// every recipient independently; one failure never blocks the rest.
func (d *Dispatcher) fanOut(ctx context.Context, send func(recipient string) (string, error)) Result {
	cfg, err := LoadConfig(ctx, d.db)
	if err != nil {
		d.log.Error().Err(err).Msg("load notification config failed")
		return Result{FirstErr: err}
	}

	if !cfg.IsPaired {
		return Result{SkipReason: ErrNotPaired.Error()}
	}
	if cfg.IsBlocked {
		return Result{SkipReason: ErrBlocked.Error()}
	}
	if len(cfg.Recipients) == 0 {
		return Result{SkipReason: ErrNoRecipients.Error()}
	}

	var result Result
	for _, recipient := range cfg.Recipients {
		messageID, err := send(recipient)
		if err != nil {
			result.Failed++
			if result.FirstErr == nil {
				result.FirstErr = fmt.Errorf("gateway failure for %s: %w", recipient, err)
			}
			d.log.Warn().Err(err).Str("recipient", recipient).Msg("notification send failed")
			continue
		}
		result.Sent++
		d.log.Debug().Str("recipient", recipient).Str("message_id", messageID).Msg("notification sent")
	}
	return result
}

func (d *Dispatcher) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return d.publicBaseURL + path
}
