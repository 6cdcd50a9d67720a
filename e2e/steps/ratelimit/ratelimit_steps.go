package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers per-tenant rate limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I call "([^"]*)" until rate limited, at most (\d+) times$`, steps.callUntilLimited)
	ctx.Step(`^I should have been rate limited$`, steps.shouldHaveBeenLimited)
	ctx.Step(`^the remaining budget header should count down$`, steps.remainingShouldCountDown)
}

type ratelimitSteps struct {
	tc TestContext

	limited   bool
	calls     int
	remaining []string
}

func (s *ratelimitSteps) callUntilLimited(ctx context.Context, path string, max int) error {
	s.limited = false
	s.calls = 0
	s.remaining = nil
	for s.calls < max {
		if err := s.tc.GET(path, nil); err != nil {
			return err
		}
		s.calls++
		if s.tc.GetLastResponseStatus() == 429 {
			s.limited = true
			return nil
		}
		s.remaining = append(s.remaining, s.tc.GetLastResponseHeader("X-RateLimit-Remaining"))
	}
	return nil
}

func (s *ratelimitSteps) shouldHaveBeenLimited(ctx context.Context) error {
	if !s.limited {
		return fmt.Errorf("no 429 after %d calls; start the server with a low RATE_LIMIT_PER_MINUTE", s.calls)
	}
	return nil
}

func (s *ratelimitSteps) remainingShouldCountDown(ctx context.Context) error {
	if len(s.remaining) < 2 {
		return fmt.Errorf("need at least two allowed calls, got %d", len(s.remaining))
	}
	if s.remaining[0] == "" {
		return fmt.Errorf("X-RateLimit-Remaining header missing")
	}
	if s.remaining[0] == s.remaining[len(s.remaining)-1] {
		return fmt.Errorf("remaining budget did not change: %v", s.remaining)
	}
	return nil
}
