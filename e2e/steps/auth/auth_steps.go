package auth

import (
	"context"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	SetAPIKey(key string)
}

// RegisterSteps registers API key authentication step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I use the API key "([^"]*)"$`, steps.useAPIKey)
	ctx.Step(`^I send no API key$`, steps.sendNoAPIKey)
	ctx.Step(`^I request my client details$`, steps.requestClientDetails)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) useAPIKey(ctx context.Context, key string) error {
	s.tc.SetAPIKey(key)
	return nil
}

func (s *authSteps) sendNoAPIKey(ctx context.Context) error {
	s.tc.SetAPIKey("")
	return nil
}

func (s *authSteps) requestClientDetails(ctx context.Context) error {
	return s.tc.GET("/client", nil)
}
