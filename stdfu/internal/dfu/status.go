// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DFU status codes
const (
	StatusOK uint8 = 0x00
)

var statusStr = [...]string{
	0:  "OK",
	1:  "file is not for this target",
	2:  "file fails a vendor-specific verification test",
	3:  "unable to write memory",
	4:  "memory erase function failed",
	5:  "memory erase check failed",
	6:  "program memory function failed",
	7:  "programmed memory failed verification",
	8:  "memory address is out of range",
	9:  "premature DFU_DNLOAD with wLength = 0",
	10: "firmware is corrupt",
	11: "vendor-specific error",
	12: "unexpected USB reset signaling",
	13: "unexpected power on reset",
	14: "unknown error",
	15: "stalled an unexpected request",
}

// DFU states
const (
	StateAppIdle           uint8 = 0
	StateAppDetach         uint8 = 1
	StateIdle              uint8 = 2
	StateDnloadSync        uint8 = 3
	StateDnbusy            uint8 = 4
	StateDnloadIdle        uint8 = 5
	StateManifestSync      uint8 = 6
	StateManifest          uint8 = 7
	StateManifestWaitReset uint8 = 8
	StateUploadIdle        uint8 = 9
	StateError             uint8 = 10
)

var stateStr = [...]string{
	StateAppIdle:           "app idle",
	StateAppDetach:         "app detach",
	StateIdle:              "DFU idle",
	StateDnloadSync:        "DFU download sync",
	StateDnbusy:            "DFU download busy",
	StateDnloadIdle:        "DFU download idle",
	StateManifestSync:      "DFU manifest sync",
	StateManifest:          "DFU manifest",
	StateManifestWaitReset: "DFU manifest wait reset",
	StateUploadIdle:        "DFU upload idle",
	StateError:             "DFU error",
}

func StatusString(status uint8) string {
	if int(status) < len(statusStr) {
		return statusStr[status]
	}
	return "unknown error"
}

func StateString(state uint8) string {
	if int(state) < len(stateStr) {
		return stateStr[state]
	}
	return fmt.Sprintf("unknown state %d", state)
}

// Status is the decoded reply to the GETSTATUS request.
type Status struct {
	Status      uint8
	PollTimeout time.Duration // advised wait before the next GETSTATUS
	State       uint8
	StrIndex    uint8
}

func (s Status) OK() bool {
	return s.Status == StatusOK
}

func (s Status) String() string {
	return StatusString(s.Status) + " (" + StateString(s.State) + ")"
}

func decodeStatus(b []byte) (s Status, err error) {
	if len(b) < 6 {
		err = ErrShortStatus
		return
	}
	ms := uint(b[1]) | uint(b[2])<<8 | uint(b[3])<<16
	s.Status = b[0]
	s.PollTimeout = time.Duration(ms) * time.Millisecond
	s.State = b[4]
	s.StrIndex = b[5]
	return
}

// StatusError reports a bootloader that answered GETSTATUS with an error.
type StatusError struct {
	Status uint8
	State  uint8
}

func (e *StatusError) Error() string {
	return StatusString(e.Status) + " (" + StateString(e.State) + ")"
}

func (c *Conn) getStatus() (s Status, err error) {
	n, err := c.dev.Control(rtIn, reqGetStatus, 0, c.iid, c.statusBuf[:])
	if err != nil {
		return
	}
	s, err = decodeStatus(c.statusBuf[:n])
	if err != nil {
		return
	}
	c.log.WithFields(logrus.Fields{
		"status": s.Status,
		"state":  s.State,
		"poll":   s.PollTimeout,
	}).Debug("GETSTATUS")
	return
}

// GetStatus issues a single GETSTATUS request.
func (c *Conn) GetStatus() (s Status, err error) {
	defer wrapErr("GetStatus", &err)
	return c.getStatus()
}

// PollUntilOK issues GETSTATUS until the device reports the OK status. A
// device in the dfuERROR state is reported immediately as *StatusError. If the
// device does not settle within the poll timeout the returned error wraps
// ErrTimeout.
func (c *Conn) PollUntilOK() (s Status, err error) {
	defer wrapErr("PollUntilOK", &err)
	return c.pollUntilOK()
}

func (c *Conn) pollUntilOK() (s Status, err error) {
	start := time.Now()
	for {
		s, err = c.getStatus()
		if err != nil {
			return
		}
		// Only the status byte decides. OK in dfuDNBUSY is done too.
		if s.OK() {
			return
		}
		serr := &StatusError{s.Status, s.State}
		if s.State == StateError {
			err = serr
			return
		}
		wait := s.PollTimeout / time.Duration(c.pollSpeed)
		if c.pollTimeout > 0 {
			left := c.pollTimeout - time.Since(start)
			if left <= 0 {
				err = fmt.Errorf("%w after %v: %w", ErrTimeout, c.pollTimeout, serr)
				return
			}
			wait = min(wait, left)
		}
		if wait > 0 {
			time.Sleep(wait)
		}
	}
}

// ClrStatus issues the CLRSTATUS request.
func (c *Conn) ClrStatus() (err error) {
	defer wrapErr("ClrStatus", &err)
	return c.clrStatus()
}

func (c *Conn) clrStatus() error {
	c.log.Debug("CLRSTATUS")
	_, err := c.dev.Control(rtOut, reqClrStatus, 0, c.iid, nil)
	return err
}

// Abort issues the ABORT request.
func (c *Conn) Abort() (err error) {
	defer wrapErr("Abort", &err)
	return c.abort()
}

func (c *Conn) abort() error {
	c.log.Debug("ABORT")
	_, err := c.dev.Control(rtOut, reqAbort, 0, c.iid, nil)
	return err
}

// ClearStatus brings the bootloader back to a known idle state. It must be
// called before starting a new erase/program sequence. A device in the
// dfuERROR state gets CLRSTATUS, a device in dfuUPLOAD-IDLE gets ABORT.
func (c *Conn) ClearStatus() (err error) {
	defer wrapErr("ClearStatus", &err)
	s, err := c.getStatus()
	if err != nil {
		return
	}
	switch s.State {
	case StateError:
		if err = c.clrStatus(); err != nil {
			return
		}
	case StateUploadIdle:
		if err = c.abort(); err != nil {
			return
		}
		if _, err = c.pollUntilOK(); err != nil {
			return
		}
	}
	s, err = c.getStatus()
	if err != nil {
		return
	}
	if s.State == StateError {
		err = &StatusError{s.Status, s.State}
	}
	return
}
