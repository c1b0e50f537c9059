package irc

import (
	"strings"
	"sync"
	"time"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const capNegotiationTimeout = time.Second * 30

type capability struct {
	name      string
	args      string
	available bool // Has the server said it exists
	requested bool // Have we asked the server for it
	enabled   bool // Has the server ACK-ed our REQ?
	supported bool // Do we locally support this?
}

type capabilityManager struct {
	sync.RWMutex
	caps []*capability
	irc  *IRC

	// for use during negotiation
	doingInitialNegotiation bool
	waitingForMoreCaps      bool
	offeredCaps             []string
	ackedCaps               []string
}

func newCapabilityManager(irc *IRC) *capabilityManager {
	return &capabilityManager{irc: irc}
}

func (c *capabilityManager) supportCap(name string) {
	capab := c.addOrGetCap(name)
	c.Lock()
	capab.supported = true
	c.Unlock()
}

func (c *capabilityManager) getCapByName(name string) *capability {
	name = strings.SplitN(name, "=", 2)[0]
	c.RLock()
	defer c.RUnlock()
	for _, capability := range c.caps {
		if capability.name == name {
			return capability
		}
	}

	return nil
}

func (c *capabilityManager) capEnabled(name string) bool {
	capab := c.getCapByName(name)
	if capab == nil {
		return false
	}
	c.RLock()
	defer c.RUnlock()
	return capab.enabled
}

func (c *capabilityManager) setEnabled(name string, enabled bool) bool {
	capab := c.getCapByName(name)
	if capab == nil {
		return false
	}
	c.Lock()
	capab.enabled = enabled
	c.Unlock()
	return true
}

// reset clears all state from a previous connection
func (c *capabilityManager) reset() {
	c.Lock()
	defer c.Unlock()
	for _, capab := range c.caps {
		capab.available, capab.requested, capab.enabled = false, false, false
	}
	c.offeredCaps, c.ackedCaps = nil, nil
	c.waitingForMoreCaps = false
}

func (c *capabilityManager) negotiateCaps() {
	c.reset()
	c.doingInitialNegotiation = true
	capChan := make(chan *RawEvent, 16)
	onLine := func(e event.Event) {
		if raw := event2RawEvent(e); raw != nil {
			select {
			case capChan <- raw:
			default:
				c.irc.log.Warn("dropped a line during capability negotiation: ", raw.Line.Command)
			}
		}
	}

	capID := c.irc.RawEvents.Attach("CAP", onLine, event.PriHighest)
	welcomeID := c.irc.RawEvents.AttachOneShot("001", onLine, event.PriHighest)
	defer c.irc.RawEvents.Detach(capID)
	defer c.irc.RawEvents.Detach(welcomeID)

	_, err := c.irc.writeLine("CAP", "LS", "302")
	if err != nil {
		c.irc.log.Warn("could not write CAP LS command. Capability negotiation aborted")
		return
	}

	timeout := time.NewTimer(capNegotiationTimeout)
	defer timeout.Stop()

	for c.doingInitialNegotiation {
		var ev *RawEvent
		select {
		case ev = <-capChan:
		case <-timeout.C:
			c.irc.log.Warn("timed out waiting for capability negotiation. Continuing without")
			c.doingInitialNegotiation = false
			continue
		}

		if ev.CommandIs("001") {
			c.irc.log.Warn("got an unexpected 001 while waiting on capabilities. " +
				"Assuming the server does not support caps and aborting negotiation")
			return
		}

		args := ev.Line.Params
		switch util.IdxOrEmpty(args, 1) {
		case "LS":
			c.handleLS(args)
		case "ACK":
			c.handleACK(args)
		case "NAK":
			c.handleNAK(args)
		case "DEL":
			c.handleDEL(args)
		case "NEW":
			c.handleNEW(args)
		}
	}

	if c.capEnabled("sasl") {
		c.irc.authenticateWithSasl()
	}

	_, _ = c.irc.writeLine("CAP", "END")
}

func (c *capabilityManager) handleLS(args []string) {
	c.waitingForMoreCaps = util.ReverseIdx(args, -2) == "*"
	c.offeredCaps = append(c.offeredCaps, strings.Fields(util.ReverseIdx(args, -1))...)

	if !c.waitingForMoreCaps {
		c.irc.log.Info("server offered capabilities: ", strings.Join(c.offeredCaps, ", "))
		for _, name := range c.offeredCaps {
			capab := c.addOrGetCap(name)
			c.Lock()
			capab.available = true
			c.Unlock()
		}
		c.requestCaps()
	}
}

func (c *capabilityManager) handleACK(args []string) {
	// we can reuse this here because we should never get an ACK during an LS
	c.waitingForMoreCaps = util.ReverseIdx(args, -2) == "*"
	c.ackedCaps = append(c.ackedCaps, strings.Fields(util.ReverseIdx(args, -1))...)

	if !c.waitingForMoreCaps {
		c.irc.log.Info("server accepted capabilities: ", strings.Join(c.ackedCaps, ", "))
		for _, name := range c.ackedCaps {
			if !c.setEnabled(name, true) {
				c.irc.log.Warn("Server acknowledged a capability we dont know. Ignoring: ", name)
			}
		}
		c.doingInitialNegotiation = false
	}
}

func (c *capabilityManager) handleNAK(args []string) {
	caps := strings.Fields(util.ReverseIdx(args, -1))
	c.irc.log.Warn("server did not acknowledge some capabilities we asked for: ", strings.Join(caps, ", "))
	for _, capabName := range caps {
		if !c.setEnabled(capabName, false) {
			c.irc.log.Warn("server NAK-ed a capability we dont have: ", capabName)
		}
	}
	c.doingInitialNegotiation = false
}

func (c *capabilityManager) handleDEL(args []string) {
	caps := strings.Fields(util.ReverseIdx(args, -1))
	c.irc.log.Info("server disabled capabilities: ", strings.Join(caps, ", "))
	for _, capName := range caps {
		if !c.setEnabled(capName, false) {
			c.irc.log.Warn("server disabled a capability we dont have: ", capName)
		}
	}
}

func (c *capabilityManager) handleNEW(args []string) {
	caps := strings.Fields(util.ReverseIdx(args, -1))
	c.irc.log.Info("server added new capabilities: ", strings.Join(caps, ", "))
	for _, capName := range caps {
		capab := c.addOrGetCap(capName)
		c.Lock()
		if capab.supported {
			capab.available = true
		}
		c.Unlock()
	}
	// we have new caps, are any of them ones we want?
	c.requestCaps()
}

func (c *capabilityManager) addOrGetCap(name string) *capability {
	var args = ""
	if strings.Contains(name, "=") {
		split := strings.SplitN(name, "=", 2)
		name = split[0]
		args = util.IdxOrEmpty(split, 1)
	}

	if existing := c.getCapByName(name); existing != nil {
		return existing
	}

	toAdd := &capability{name: name, args: args}
	c.Lock()
	c.caps = append(c.caps, toAdd)
	c.Unlock()
	return toAdd
}

func (c *capabilityManager) requestCaps() {
	c.Lock()
	var toReq []string
	for _, capab := range c.caps {
		if capab.enabled || !capab.available || !capab.supported {
			continue
		}
		toReq = append(toReq, capab.name)
		capab.requested = true
	}
	c.Unlock()

	if len(toReq) == 0 {
		c.irc.log.Info("no capabilities to request, ending negotiation")
		c.doingInitialNegotiation = false
		return
	}

	c.irc.log.Info("requesting capabilities: ", strings.Join(toReq, ", "))
	for _, capSet := range util.JoinToMaxLength(toReq, " ", 400) {
		_, _ = c.irc.writeLine("CAP", "REQ", capSet)
	}
}
