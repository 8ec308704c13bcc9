// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPollTimeout bounds the time PollUntilOK waits for a single command.
// The longest STM32F4 sector erase takes about 4 s.
const DefaultPollTimeout = 10 * time.Second

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used to trace the DFU requests.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// WithPollTimeout sets the maximum time PollUntilOK waits for the device to
// report OK. Zero means wait forever.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d >= 0 {
			c.pollTimeout = d
		}
	}
}

// WithPollSpeed divides the poll timeout advised by the device in the
// GETSTATUS reply. Some bootloaders advise much longer waits than they need.
func WithPollSpeed(speed uint) Option {
	return func(c *Conn) {
		if speed > 0 {
			c.pollSpeed = speed
		}
	}
}

// WithProgress sets a function called by Program after every written block.
func WithProgress(f func(done, total int)) Option {
	return func(c *Conn) {
		c.progress = f
	}
}

// WithInterface sets the interface number used as wIndex in all requests.
func WithInterface(iid uint16) Option {
	return func(c *Conn) {
		c.iid = iid
	}
}
