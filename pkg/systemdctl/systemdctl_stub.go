//go:build !linux

package systemdctl

import (
	"context"
	"errors"
)

var ErrUnsupported = errors.New("systemdctl: unsupported OS (linux only)")

type Client struct{}

func New(ctx context.Context) (*Client, error) { return nil, ErrUnsupported }

func (c *Client) Close() error { return nil }

func (c *Client) DaemonReload(ctx context.Context) error { return ErrUnsupported }

func (c *Client) Enable(ctx context.Context, units ...string) error { return ErrUnsupported }

func (c *Client) Start(ctx context.Context, unit string) error { return ErrUnsupported }
