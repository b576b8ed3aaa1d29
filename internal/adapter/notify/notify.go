package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/score"
	"github.com/sirupsen/logrus"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// Notify sends a notification message.
	Notify(ctx context.Context, message string) error
}

// DefaultCheckInterval is how often Run re-checks score bands.
const DefaultCheckInterval = time.Minute

// New returns the notifier configured in cfg, or nil when notifications
// are disabled.
func New(cfg config.NotifyConfig, log logrus.FieldLogger) Notifier {
	if cfg.Type == "" {
		return nil
	}
	return NewWebhookNotifier(cfg.Type, cfg.WebhookURL, log)
}

// SettingsStore keeps the last announced band per team.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// BandWatcher announces changes of a team's score band.
type BandWatcher struct {
	store    SettingsStore
	notifier Notifier
	log      logrus.FieldLogger
}

// NewBandWatcher creates a BandWatcher. A nil notifier still records bands.
func NewBandWatcher(store SettingsStore, notifier Notifier, log logrus.FieldLogger) *BandWatcher {
	return &BandWatcher{store: store, notifier: notifier, log: log}
}

func bandKey(team string) string {
	return "score_band:" + team
}

// Check compares the dashboard's band with the last recorded one and sends
// a notification when it moved. The first band seen for a team is recorded
// without a notification. A failed send leaves the old band in place so the
// next check retries it.
func (b *BandWatcher) Check(ctx context.Context, d *dashboard.Dashboard) (bool, error) {
	key := bandKey(d.Team)
	prev, err := b.store.GetSetting(key)
	if err != nil {
		return false, fmt.Errorf("load score band: %w", err)
	}
	cur := string(d.ScoreBand)
	if prev == cur {
		return false, nil
	}

	sent := false
	if prev != "" && b.notifier != nil {
		if err := b.notifier.Notify(ctx, BandMessage(d, score.Band(prev))); err != nil {
			return false, fmt.Errorf("notify band change: %w", err)
		}
		sent = true
		b.log.WithFields(logrus.Fields{"team": d.Team, "from": prev, "to": cur}).Info("score band change announced")
	}

	if err := b.store.SetSetting(key, cur); err != nil {
		return sent, fmt.Errorf("save score band: %w", err)
	}
	return sent, nil
}

// BandMessage renders a band change for chat.
func BandMessage(d *dashboard.Dashboard, from score.Band) string {
	if !d.Score.Available() {
		return fmt.Sprintf("*[pulse]* %s score moved from %s to unavailable", d.Team, from)
	}
	return fmt.Sprintf("*[pulse]* %s score moved from %s to %s (%.1f, standard %.1f)",
		d.Team, from, d.ScoreBand, d.Score.Average, d.Score.Standard)
}

// Run checks every configured team's band on each tick until ctx is done.
// The notifier is rebuilt per tick so configuration reloads apply.
func Run(ctx context.Context, svc *dashboard.Service, store SettingsStore, log logrus.FieldLogger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w := NewBandWatcher(store, New(svc.Config().Notify, log), log)
			for _, t := range svc.Teams() {
				d, err := svc.Build(t.Name, nil)
				if err != nil {
					log.WithError(err).WithField("team", t.Name).Warn("notify: dashboard build failed")
					continue
				}
				if _, err := w.Check(ctx, d); err != nil {
					log.WithError(err).WithField("team", t.Name).Warn("notify: band check failed")
				}
			}
		}
	}
}
