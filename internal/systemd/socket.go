package systemd

import (
	"fmt"
	"net"
	"time"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Listeners holds the systemd-activated listeners
type Listeners struct {
	API       net.Listener
	Metrics   net.Listener
	Activated bool
}

// GetListeners retrieves systemd socket-activated file descriptors
// Returns nil listeners if not running under socket activation
func GetListeners() (*Listeners, error) {
	listeners := &Listeners{}

	fds := activation.Files(false) // false = don't unset env vars
	if len(fds) == 0 {
		return listeners, nil
	}
	listeners.Activated = true

	// Names come from FileDescriptorName= in wordbuddy.socket (systemd 227+)
	listenersMap, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	if lns, ok := listenersMap["api"]; ok && len(lns) > 0 {
		listeners.API = lns[0]
	}
	if lns, ok := listenersMap["metrics"]; ok && len(lns) > 0 {
		listeners.Metrics = lns[0]
	}

	return listeners, nil
}

// NotifyReady sends READY=1 notification to systemd
func NotifyReady() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("failed to send sd_notify: %w", err)
	}
	return nil
}

// NotifyStopping sends STOPPING=1 notification to systemd
func NotifyStopping() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		return fmt.Errorf("failed to send sd_notify stopping: %w", err)
	}
	return nil
}

// NotifyReloading sends RELOADING=1 notification to systemd
func NotifyReloading() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReloading); err != nil {
		return fmt.Errorf("failed to send sd_notify reloading: %w", err)
	}
	return nil
}

// NotifyWatchdog sends WATCHDOG=1 notification to systemd
// This should be called periodically to prevent watchdog timeout
func NotifyWatchdog() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		return fmt.Errorf("failed to send sd_notify watchdog: %w", err)
	}
	return nil
}

// WatchdogInterval returns how often to ping the watchdog, or zero when the
// watchdog is disabled.
func WatchdogInterval() time.Duration {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return 0
	}
	return interval / 2
}
