package e2e

import (
	"context"
	"fmt"
	"time"

	"pair-relay/client"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayURL == "" {
		s.T().Skip("RELAY_URL not set, skipping end-to-end suite")
	}
}

func (s *BaseRelaySuite) header(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// Enter dials the relay, logs in and joins. The connection is closed at the end of the test.
func (s *BaseRelaySuite) Enter(name, secret string) *client.Client {
	s.header(name)
	c, err := client.Dial(context.Background(), s.Config.RelayURL, s.Config.RevealDuration+5*time.Second)
	s.Require().NoError(err, "failed to connect to relay at "+s.Config.RelayURL)
	s.T().Cleanup(func() { _ = c.Close() })

	success, err := c.Login(secret)
	s.Require().NoError(err)
	history, online, err := c.Join()
	s.Require().NoError(err)
	if s.Config.DebugJSON {
		s.T().Logf("%s joined as %s, history=%d online=%v", name, success.Identity, len(history), online)
	}
	return c
}
