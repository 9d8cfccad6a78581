package alerts

import (
	"log"
	"time"
)

// Severity represents the urgency of a dispatched notification
type Severity string

const (
	// Notification severities
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityUrgent  Severity = "urgent"
)

// Channel represents a presentation channel for a notification
type Channel string

const (
	// Notification channels
	ChannelSound Channel = "sound"
	ChannelToast Channel = "toast"
	ChannelPopup Channel = "popup"
)

// TonePulse is one synthesized tone in an audio cue envelope
type TonePulse struct {
	FrequencyHz float64       `json:"frequencyHz"`
	Duration    time.Duration `json:"duration"`
	Pause       time.Duration `json:"pause"`
}

// Notification is a stock alert ready for presentation. Tone carries
// the synthesized envelope for the sound channel; the three severities
// map to three audibly distinct envelopes.
type Notification struct {
	Severity  Severity    `json:"severity"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Channels  []Channel   `json:"channels"`
	Tone      []TonePulse `json:"tone,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ToneFor returns the audio envelope for a severity: a rapid multi-tone
// burst for urgent, a double beep for warning, and a single soft tone
// for info.
func ToneFor(severity Severity) []TonePulse {
	switch severity {
	case SeverityUrgent:
		return []TonePulse{
			{FrequencyHz: 880, Duration: 90 * time.Millisecond, Pause: 40 * time.Millisecond},
			{FrequencyHz: 1040, Duration: 90 * time.Millisecond, Pause: 40 * time.Millisecond},
			{FrequencyHz: 1240, Duration: 90 * time.Millisecond, Pause: 40 * time.Millisecond},
			{FrequencyHz: 1240, Duration: 180 * time.Millisecond},
		}
	case SeverityWarning:
		return []TonePulse{
			{FrequencyHz: 620, Duration: 140 * time.Millisecond, Pause: 110 * time.Millisecond},
			{FrequencyHz: 620, Duration: 140 * time.Millisecond},
		}
	default:
		return []TonePulse{
			{FrequencyHz: 440, Duration: 260 * time.Millisecond},
		}
	}
}

// NotificationSink renders notifications to the user. Headless and test
// environments plug in a no-op implementation; the urgency contract is
// carried entirely by the Notification payload.
type NotificationSink interface {
	Notify(notification Notification) error
}

// NoopSink discards every notification
type NoopSink struct{}

// Notify implements NotificationSink
func (NoopSink) Notify(Notification) error { return nil }

// LogSink writes notifications to the process log, for headless runs
type LogSink struct{}

// Notify implements NotificationSink
func (LogSink) Notify(n Notification) error {
	log.Printf("[%s] %s: %s", n.Severity, n.Title, n.Message)
	return nil
}

// MultiSink fans a notification out to several sinks, returning the
// first error after attempting all of them.
type MultiSink []NotificationSink

// Notify implements NotificationSink
func (m MultiSink) Notify(n Notification) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Notify(n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
