package irc

import (
	"time"

	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/event"
	"git.ferricyanide.solutions/A_D/goGoJenkinsBot/pkg/util"
)

const saslTimeout = time.Second * 15

// authenticateWithSasl runs a SASL PLAIN exchange. It is called during capability negotiation, before CAP END
func (i *IRC) authenticateWithSasl() {
	const authenticate = "AUTHENTICATE"
	conf := i.Conf()
	saslChan := make(chan *RawEvent, 8)
	id := i.RawEvents.AttachMany(func(e event.Event) {
		if raw := event2RawEvent(e); raw != nil {
			select {
			case saslChan <- raw:
			default:
			}
		}
	}, event.PriNorm,
		authenticate,
		util.RPL_LOGGEDIN,
		util.RPL_LOGGEDOUT,
		util.RPL_NICKLOCKED,
		util.RPL_SASLSUCCESS,
		util.RPL_SASLFAIL,
		util.RPL_SASLTOOLONG,
		util.RPL_SASLABORTED,
		util.RPL_SASLALREADY,
		util.RPL_SASLMECHS,
	)
	defer i.RawEvents.Detach(id)

	if _, err := i.writeLine(authenticate, "PLAIN"); err != nil {
		i.log.Warn("could not send SASL authentication request. Aborting SASL")
		return
	}

	timeout := time.NewTimer(saslTimeout)
	defer timeout.Stop()

	for {
		var raw *RawEvent
		select {
		case raw = <-saslChan:
		case <-timeout.C:
			i.log.Warn("timed out waiting for SASL. Aborting")
			_, _ = i.writeLine(authenticate, "*")
			return
		}

		switch raw.Line.Command {
		case authenticate:
			if util.IdxOrEmpty(raw.Line.Params, 0) == "+" {
				_, err := i.writeLine(authenticate, util.GenerateSASLString(conf.Nick, conf.AuthUser, conf.AuthPasswd))
				if err != nil {
					i.log.Warn("could not send SASL authentication. Aborting")
					return
				}
			}

		case util.RPL_NICKLOCKED, util.RPL_SASLFAIL, util.RPL_SASLTOOLONG, util.RPL_SASLABORTED,
			util.RPL_SASLALREADY, util.RPL_SASLMECHS:
			i.log.Warn("SASL negotiation failed. Aborting")
			return

		case util.RPL_SASLSUCCESS:
			i.log.Info("SASL authentication succeeded")
			return

		case util.RPL_LOGGEDIN:
			// 903 follows

		default:
			i.log.Warn("got an unexpected command during SASL: ", raw.Line.Command)
		}
	}
}
