package e2e

import (
	"github.com/cucumber/godog"

	"voicedesk/e2e/steps/calls"
	"voicedesk/e2e/steps/common"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	calls.RegisterSteps(ctx, tc)
}
