//go:build linux

// Package systemdctl talks to the systemd manager over the system
// D-Bus. It carries just the operations the installer needs: reload
// the unit index, enable unit files, start a unit.
package systemdctl

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Client wraps a system D-Bus connection to systemd.
type Client struct {
	mu   sync.Mutex
	conn *dbus.Conn
}

// New connects to the system bus. Requires a running systemd and
// sufficient privileges for manager operations.
func New(ctx context.Context) (*Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the systemd connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

// DaemonReload re-reads the unit index (systemctl daemon-reload).
func (c *Client) DaemonReload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("systemd connection is closed")
	}
	if err := c.conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("failed to reload systemd daemon: %w", err)
	}
	return nil
}

// Enable enables unit files by full name (including the .service or
// .timer suffix). Enabling an already-enabled unit is a no-op for
// systemd, which is what makes installer re-runs converge.
func (c *Client) Enable(ctx context.Context, units ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("systemd connection is closed")
	}
	_, _, err := c.conn.EnableUnitFilesContext(ctx, units, false, true)
	if err != nil {
		return fmt.Errorf("failed to enable %v: %w", units, err)
	}
	return nil
}

// Start starts a unit by full name.
func (c *Client) Start(ctx context.Context, unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("systemd connection is closed")
	}
	if _, err := c.conn.StartUnitContext(ctx, unit, "replace", nil); err != nil {
		return fmt.Errorf("failed to start %s: %w", unit, err)
	}
	return nil
}
