package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/fumiya-kume/repaircoord/pkg/coordination"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// BeepProvider plays sounds and shows desktop notifications
type BeepProvider interface {
	Beep(frequency float64, duration int) error
	Notify(title, message string) error
}

// RealBeepProvider implements BeepProvider using the beeep library
type RealBeepProvider struct{}

func (r *RealBeepProvider) Beep(frequency float64, duration int) error {
	return beeep.Beep(frequency, duration)
}

func (r *RealBeepProvider) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// FakeBeepProvider records calls instead of playing sounds.
//
//	fake := &FakeBeepProvider{}
//	alerter := NewAlerterWithProvider(TestAlertConfig(), fake)
//	alerter.CriticalEvent(record)
//	fake.WaitForCalls(2)
type FakeBeepProvider struct {
	CallCount     int
	LastFreq      float64
	LastDur       int
	Calls         []BeepCall
	Notifications []string
	doneCh        chan struct{}
	mu            sync.Mutex
}

type BeepCall struct {
	Frequency float64
	Duration  int
}

func (f *FakeBeepProvider) Beep(frequency float64, duration int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CallCount++
	f.LastFreq = frequency
	f.LastDur = duration
	f.Calls = append(f.Calls, BeepCall{Frequency: frequency, Duration: duration})
	f.signal()
	return nil
}

func (f *FakeBeepProvider) Notify(title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CallCount++
	f.Notifications = append(f.Notifications, title+": "+message)
	f.signal()
	return nil
}

func (f *FakeBeepProvider) signal() {
	if f.doneCh == nil {
		f.doneCh = make(chan struct{}, 16)
	}
	select {
	case f.doneCh <- struct{}{}:
	default:
	}
}

// WaitForCalls waits for the given number of beeps or notifications
func (f *FakeBeepProvider) WaitForCalls(expectedCalls int) {
	f.mu.Lock()
	if f.doneCh == nil {
		f.doneCh = make(chan struct{}, 16)
	}
	done := f.doneCh
	f.mu.Unlock()

	for i := 0; i < expectedCalls; i++ {
		<-done
	}
}

// Snapshot returns a copy of the recorded beeps and notifications
func (f *FakeBeepProvider) Snapshot() ([]BeepCall, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BeepCall(nil), f.Calls...), append([]string(nil), f.Notifications...)
}

// AlertConfig holds audible alert settings
type AlertConfig struct {
	Enabled   bool
	Frequency int           // Hz
	Duration  time.Duration // per beep
	Repeats   int           // beeps per critical event
	BeepDelay time.Duration // between beeps
	Notify    bool          // also raise a desktop notification
}

// DefaultAlertConfig returns the default alert settings
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Enabled:   true,
		Frequency: 880,
		Duration:  250 * time.Millisecond,
		Repeats:   2,
		BeepDelay: 100 * time.Millisecond,
		Notify:    true,
	}
}

// TestAlertConfig returns alert settings without delays
func TestAlertConfig() AlertConfig {
	cfg := DefaultAlertConfig()
	cfg.BeepDelay = 0
	return cfg
}

// Alerter sounds an alarm when a critical event bypasses the queue
type Alerter struct {
	mu       sync.RWMutex
	config   AlertConfig
	provider BeepProvider
	logger   *logger.Logger
}

// NewAlerter creates an alerter with the real beep provider
func NewAlerter(config AlertConfig) *Alerter {
	return NewAlerterWithProvider(config, &RealBeepProvider{})
}

// NewAlerterWithProvider creates an alerter with a custom provider
func NewAlerterWithProvider(config AlertConfig, provider BeepProvider) *Alerter {
	return &Alerter{
		config:   config,
		provider: provider,
		logger:   logger.GetLogger().WithPrefix("alert"),
	}
}

// CriticalEvent is suitable as the router's critical hook. Sounds play in the
// background so the router is never blocked.
func (a *Alerter) CriticalEvent(record coordination.EventRecord) {
	a.mu.RLock()
	config := a.config
	a.mu.RUnlock()

	if !config.Enabled {
		return
	}

	message := fmt.Sprintf("%s (%s)", record.Event.Type, record.Event.Category)
	if len(record.ImmediateActions) > 0 {
		message += ": " + strings.Join(record.ImmediateActions, "; ")
	}

	go func() {
		for i := 0; i < config.Repeats; i++ {
			if err := a.provider.Beep(float64(config.Frequency), int(config.Duration.Milliseconds())); err != nil {
				a.logger.Debug("Beep failed (error: %v)", err)
			}
			if i < config.Repeats-1 && config.BeepDelay > 0 {
				timer := time.NewTimer(config.BeepDelay)
				<-timer.C
			}
		}
		if config.Notify {
			if err := a.provider.Notify("Critical repair event", message); err != nil {
				a.logger.Debug("Desktop notification failed (error: %v)", err)
			}
		}
	}()
}

// SetEnabled enables or disables alerts
func (a *Alerter) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Enabled = enabled
}

// IsEnabled returns whether alerts are enabled
func (a *Alerter) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Enabled
}
