package e2e

import (
	"github.com/cucumber/godog"

	"kycgate/e2e/steps/auth"
	"kycgate/e2e/steps/common"
	"kycgate/e2e/steps/kyc"
	"kycgate/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register API key steps
	auth.RegisterSteps(ctx, tc)

	// Register user and verification steps
	kyc.RegisterSteps(ctx, tc)

	ratelimit.RegisterSteps(ctx, tc)
}
